package auth_test

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/liftlog/pkg/authsdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common constants and helper functions for auth service end-to-end tests.
 * This includes container setup, reading delivered codes and assertions.
 */

const (
	testImageName = "liftlog-auth-test:latest"

	accessSecret  = "e2e-access-secret-0123456789abcdef0123"
	refreshSecret = "e2e-refresh-secret-0123456789abcdef012"
	providerToken = "123456789:e2e-provider-token"
)

// TestMain builds the Docker image once before all tests and cleans it up
// after all tests complete.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building Auth Service Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up Auth Service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/auth/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil

	return cmd.Run()
}

func cleanupDockerImage() {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // image might not exist
}

// authService is a running auth container.
type authService struct {
	BaseURL   string
	container testcontainers.Container
}

func baseEnv() map[string]string {
	return map[string]string{
		"AUTH_ACCESS_SECRET":  accessSecret,
		"AUTH_REFRESH_SECRET": refreshSecret,
		"AUTH_PROVIDER_TOKEN": providerToken,
		"AUTH_ISSUER":         "liftlog-auth",
		"ENV":                 "test",
		"LOG_LEVEL":           "info",
		"LOG_FORMAT":          "json",
	}
}

// relaxedRateLimits lifts the production limits; tests make many rapid
// requests from one address.
func relaxedRateLimits() map[string]string {
	return map[string]string{
		"RATELIMIT_STRICT_REQUESTS":   "1000",
		"RATELIMIT_STRICT_WINDOW_SEC": "60",
		"RATELIMIT_STRICT_BURST":      "1000",
		"RATELIMIT_MODERATE_REQUESTS": "1000",
		"RATELIMIT_MODERATE_BURST":    "1000",
	}
}

// setupAuthContainer starts the auth service with relaxed rate limits.
func setupAuthContainer(t *testing.T, extraEnv ...map[string]string) *authService {
	t.Helper()

	env := baseEnv()
	maps.Copy(env, relaxedRateLimits())
	for _, e := range extraEnv {
		maps.Copy(env, e)
	}
	return startContainer(t, env)
}

// setupAuthContainerWithDefaultRateLimits starts the auth service with the
// production rate limits, for the tests that check limiting itself.
func setupAuthContainerWithDefaultRateLimits(t *testing.T) *authService {
	t.Helper()
	return startContainer(t, baseEnv())
}

func startContainer(t *testing.T, env map[string]string) *authService {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          env,
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	return &authService{
		BaseURL:   fmt.Sprintf("http://%s:%s", host, mappedPort.Port()),
		container: container,
	}
}

// latestCode scans the container log for the most recent code delivered to
// identity. The service's log deliverer writes one JSON line per code.
func (s *authService) latestCode(t *testing.T, identity string) string {
	t.Helper()

	var code string
	require.Eventually(t, func() bool {
		logs, err := s.container.Logs(context.Background())
		if err != nil {
			return false
		}
		defer logs.Close()

		scanner := bufio.NewScanner(logs)
		for scanner.Scan() {
			line := scanner.Text()
			start := strings.IndexByte(line, '{')
			if start < 0 {
				continue
			}

			var entry struct {
				Msg      string `json:"msg"`
				Identity string `json:"identity"`
				Code     string `json:"code"`
			}
			if json.Unmarshal([]byte(line[start:]), &entry) != nil {
				continue
			}
			if entry.Msg == "otp issued" && entry.Identity == identity {
				code = entry.Code
			}
		}
		return code != ""
	}, 5*time.Second, 100*time.Millisecond, "no code delivered to %s", identity)

	return code
}

// registerViaOTP runs the whole new-user flow and returns the access token.
// The client's cookie jar ends up holding the refresh cookie.
func registerViaOTP(t *testing.T, svc *authService, client *authsdk.SDKClient, identity, name string) string {
	t.Helper()
	ctx := t.Context()

	sent, err := client.SendOTP(ctx, identity)
	require.NoError(t, err)
	require.True(t, sent.IsNewUser)

	verified, err := client.VerifyOTP(ctx, identity, svc.latestCode(t, identity))
	require.NoError(t, err)
	require.True(t, verified.NeedsName())

	tokens, err := client.CompleteRegistration(ctx, identity, name)
	require.NoError(t, err)
	require.NotEmpty(t, tokens.AccessToken)

	return tokens.AccessToken
}

// assertHealthy verifies a health check response is OK.
func assertHealthy(t *testing.T, health *authsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}

// assertAPIError checks that err decoded into the expected API error kind.
func assertAPIError(t *testing.T, err error, want *authsdk.APIError) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, want, "got %v", err)
}
