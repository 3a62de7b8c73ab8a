package client

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/mcp-sse-client/pkg/logging"
)

func TestPendingTable(t *testing.T) {
	table := newPendingTable()
	now := time.Now()

	first := table.add(1, 7, "tools/list", now, logging.NewNop())
	second := table.add(2, 7, "ping", now, logging.NewNop())
	assert.Equal(t, 2, table.len())

	// a response for another session generation does not match
	assert.Nil(t, table.take(1, 6))
	assert.Nil(t, table.take(3, 7))

	got := table.take(1, 7)
	require.Same(t, first, got)
	assert.False(t, table.remove(first))
	got.complete(json.RawMessage(`{}`), nil)
	got.complete(nil, errors.New("ignored"))

	out := <-first.done
	assert.JSONEq(t, `{}`, string(out.result))
	assert.NoError(t, out.err)

	drained := table.drain()
	require.Len(t, drained, 1)
	assert.Same(t, second, drained[0])
	assert.Equal(t, 0, table.len())
	assert.Nil(t, table.drain())
	assert.False(t, table.remove(second))
}
