package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sahel-erp/sahel-erp/jobs"
)

func TestRunRequiresCommand(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"-redis", "127.0.0.1:1"}, &out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing command")
}

func TestTriggerRejectsUnknownJob(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"-redis", "127.0.0.1:1", "trigger", "finance:close"}, &out)
	require.True(t, errors.Is(err, jobs.ErrUnknownTask))
	require.Empty(t, out.String())
}

func TestUnknownCommand(t *testing.T) {
	err := run(context.Background(), []string{"-redis", "127.0.0.1:1", "purge"}, &bytes.Buffer{})
	require.ErrorContains(t, err, `unknown command "purge"`)
}
