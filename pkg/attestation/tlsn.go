package attestation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Exit codes the proof toolchain uses to distinguish rejection classes.
const (
	exitMalformed = 64
	exitUntrusted = 65
)

// ToolchainVerifier shells out to the TLS-notary toolchain's verify command.
// The toolchain owns the MPC-TLS cryptography; this wrapper owns the process
// lifetime and the JSON boundary.
type ToolchainVerifier struct {
	binPath string
	workDir string
	timeout time.Duration
}

// verifyOutput is the JSON the toolchain prints on successful verification
type verifyOutput struct {
	ServerName string `json:"server_name"`
	Time       int64  `json:"time"`
	Sent       string `json:"sent"`
	Recv       string `json:"recv"`
}

// NewToolchainVerifier builds a verifier around the given toolchain binary
func NewToolchainVerifier(binPath, workDir string, timeout time.Duration) *ToolchainVerifier {
	return &ToolchainVerifier{
		binPath: binPath,
		workDir: workDir,
		timeout: timeout,
	}
}

// VerifySession writes the presentation to a scratch file, runs the toolchain
// verify command against it and parses the disclosed session from stdout. The
// subprocess is killed when the timeout or the caller's context expires.
func (v *ToolchainVerifier) VerifySession(ctx context.Context, presentation []byte) (*VerifiedSession, error) {
	if len(presentation) == 0 {
		return nil, newError(CodeMalformedProof, "empty presentation")
	}

	if err := os.MkdirAll(v.workDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %v", err)
	}

	path := filepath.Join(v.workDir, fmt.Sprintf("presentation-%s.bin", uuid.NewString()))
	if err := os.WriteFile(path, presentation, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write presentation: %v", err)
	}
	defer os.Remove(path)

	runCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, v.binPath, "verify", "--presentation", path, "--format", "json")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("verify timed out after %s", v.timeout)
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			switch exitErr.ExitCode() {
			case exitMalformed:
				return nil, newError(CodeMalformedProof, "toolchain rejected presentation: %s", firstLine(stderr.Bytes()))
			case exitUntrusted:
				return nil, newError(CodeUntrustedServer, "authenticity proof failed: %s", firstLine(stderr.Bytes()))
			}
		}
		return nil, fmt.Errorf("verify failed: %v: %s", err, firstLine(stderr.Bytes()))
	}

	var out verifyOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("failed to parse verify output: %v", err)
	}
	if out.ServerName == "" {
		return nil, newError(CodeMalformedProof, "verify output missing server name")
	}

	return &VerifiedSession{
		ServerName:     out.ServerName,
		Time:           time.Unix(out.Time, 0).UTC(),
		SentTranscript: []byte(out.Sent),
		RecvTranscript: []byte(out.Recv),
	}, nil
}

func firstLine(b []byte) string {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[:i]
	}
	return string(bytes.TrimSpace(b))
}
