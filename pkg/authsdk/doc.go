/*
Package authsdk provides a client SDK for the LiftLog authentication service,
plus the error and request/response types the server shares with it.

# SDKClient vs Controller

The package is organized around two main types:

  - SDKClient: one method per endpoint, no state beyond its cookie jar
  - Controller: the login state machine with automatic token refresh

The SDKClient keeps the refresh_token cookie in a private cookie jar. Callers
never see the refresh token; they only ever handle the short-lived access
token.

# Login Flows

Passwordless login with a one-time code:

	client := authsdk.NewSDKClient("https://auth.example.com")
	ctl := authsdk.NewController(client, authsdk.ControllerOptions{})
	defer ctl.Close()

	isNew, err := ctl.SubmitIdentity(ctx, "ann@example.com")
	// ... the user reads the code from their inbox ...
	state, err := ctl.SubmitCode(ctx, code)
	if state == authsdk.StateAwaitingName {
		err = ctl.SubmitName(ctx, "Ann")
	}

Login with a payload from the third-party login widget:

	err := ctl.LoginWithSignedPayload(ctx, authsdk.SignedPayload{
		"id": "42", "first_name": "Ann", "auth_date": "1700000000", "hash": "...",
	})

# Resending Codes

Controller.Resend is throttled by a ResendPolicy: a 59 second cool-down after
every send, and a 24 hour lockout after three resends. The lockout is kept in
a LockoutStore; use a FileLockoutStore so it survives restarts:

	store, err := authsdk.NewFileLockoutStore(filepath.Join(dir, "lockout.json"))
	ctl := authsdk.NewController(client, authsdk.ControllerOptions{
		Resend: authsdk.NewResendPolicy(store),
	})

# Automatic Token Refresh

Once authenticated, the Controller checks the access token's exp claim
immediately and then every 15 minutes. An expired token is refreshed once
through POST /refresh-token. Concurrent refreshes are collapsed into a single
request. If the refresh fails the Controller logs out.

Controller.ValidAccessToken and Controller.Me refresh on demand as well.

# Error Handling

Every non-2xx response is returned as an *APIError. Its Is method compares
error codes, so the predefined values can be matched with errors.Is:

	if errors.Is(err, authsdk.ErrChallengeExpired) {
		// ask for a new code
	}

Network failures wrap ErrTransport. State machine misuse returns
ErrInvalidState.

# Thread Safety

SDKClient and Controller are safe for concurrent use.
*/
package authsdk
