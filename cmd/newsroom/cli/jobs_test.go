package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/editorialhouse/newsroom/jobs"
)

func TestJobNames(t *testing.T) {
	require.Equal(t, []string{jobs.TaskSessionsPrune, jobs.TaskReportsBacklog}, JobNames())
}

func TestTriggerRejectsUnknownJob(t *testing.T) {
	var c *JobsCLI
	_, err := c.Trigger(context.Background(), "mail:send")
	require.ErrorContains(t, err, "unsupported job")

	_, err = c.Trigger(context.Background(), jobs.TaskSessionsPrune)
	require.ErrorContains(t, err, "client not configured")
}

func TestRunUsage(t *testing.T) {
	c := &JobsCLI{}
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)

	require.Equal(t, 2, c.Run(context.Background(), nil, stdout, stderr))
	require.Contains(t, stderr.String(), "usage")

	stderr.Reset()
	require.Equal(t, 2, c.Run(context.Background(), []string{"trigger"}, stdout, stderr))
	require.Contains(t, stderr.String(), jobs.TaskReportsBacklog)

	stderr.Reset()
	require.Equal(t, 1, c.Run(context.Background(), []string{"trigger", "nope"}, stdout, stderr))
	require.Equal(t, 1, c.Run(context.Background(), []string{"stats"}, stdout, stderr))
	require.Equal(t, 2, c.Run(context.Background(), []string{"purge"}, stdout, stderr))
	require.Empty(t, stdout.String())
}
