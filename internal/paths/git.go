package paths

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

func gitAvailable() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// runGit shells out to git in dir, returning stdout (or stderr as a
// fallback when git exited non-zero and produced no stdout). Best-effort:
// any failure (missing binary, timeout, non-repo dir) yields "".
func runGit(dir string, args []string, timeoutMS int) string {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutMS)*time.Millisecond)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var out, errOut strings.Builder
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	err := cmd.Run()
	res := strings.TrimSpace(out.String())
	if err != nil && res == "" {
		res = strings.TrimSpace(errOut.String())
	}
	const limit = 4000
	if len(res) > limit {
		res = res[:limit-3] + "..."
	}
	return res
}
