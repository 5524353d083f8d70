package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubRefresher struct {
	calls  []string
	failOn map[string]bool
}

func (s *stubRefresher) RefreshDaily(ctx context.Context, date time.Time) error {
	key := date.Format("2006-01-02")
	s.calls = append(s.calls, key)
	if s.failOn[key] {
		return errors.New("nbs unavailable")
	}
	return nil
}

func TestWarmCommandDryDoesNotFetch(t *testing.T) {
	refresher := &stubRefresher{}
	cli := NewFXWarmCLI(refresher)
	var out, errOut bytes.Buffer

	code := cli.WarmCommand(context.Background(), WarmOptions{
		From: "2025-10-20", To: "2025-10-22", Mode: WarmModeDry,
		Stdout: &out, Stderr: &errOut,
	})
	require.Equal(t, 0, code)
	require.Empty(t, refresher.calls)
	require.Contains(t, out.String(), "3 day(s)")
}

func TestWarmCommandApplyFetchesEachDay(t *testing.T) {
	refresher := &stubRefresher{}
	cli := NewFXWarmCLI(refresher)
	var out, errOut bytes.Buffer

	code := cli.WarmCommand(context.Background(), WarmOptions{
		From: "2025-10-20", To: "2025-10-22", Mode: WarmModeApply,
		JSONOutput: true, Stdout: &out, Stderr: &errOut,
	})
	require.Equal(t, 0, code)
	require.Equal(t, []string{"2025-10-20", "2025-10-21", "2025-10-22"}, refresher.calls)

	var summary WarmSummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	require.Len(t, summary.Fetched, 3)
	require.Empty(t, summary.Failed)
}

func TestWarmCommandReportsFailures(t *testing.T) {
	refresher := &stubRefresher{failOn: map[string]bool{"2025-10-21": true}}
	cli := NewFXWarmCLI(refresher)
	var out, errOut bytes.Buffer

	code := cli.WarmCommand(context.Background(), WarmOptions{
		From: "2025-10-20", To: "2025-10-22", Mode: WarmModeApply,
		Stdout: &out, Stderr: &errOut,
	})
	require.Equal(t, 1, code)
	require.Contains(t, errOut.String(), "2025-10-21")
	require.Contains(t, out.String(), "failed  2025-10-21")
}

func TestWarmCommandValidatesInput(t *testing.T) {
	cli := NewFXWarmCLI(&stubRefresher{})
	var out, errOut bytes.Buffer

	require.Equal(t, 1, cli.WarmCommand(context.Background(), WarmOptions{
		From: "20-10-2025", To: "2025-10-22", Stdout: &out, Stderr: &errOut,
	}))
	require.Equal(t, 1, cli.WarmCommand(context.Background(), WarmOptions{
		From: "2025-10-23", To: "2025-10-22", Stdout: &out, Stderr: &errOut,
	}))
	require.Equal(t, 1, cli.WarmCommand(context.Background(), WarmOptions{
		From: "2025-10-22", To: "2025-10-23", Mode: "yolo", Stdout: &out, Stderr: &errOut,
	}))
}
