package klog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFd int

func (f fakeFd) String() string { return "fd3" }

func TestDebugfIncludesSubject(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	require.NoError(t, SetLevel("debug"))
	defer SetLevel("info")

	Debugf(fakeFd(3), "opened %s", "/tmp/x")

	out := buf.String()
	assert.Contains(t, out, "fd3")
	assert.Contains(t, out, "opened /tmp/x")
}

func TestDebugfSuppressedAtInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	require.NoError(t, SetLevel("info"))

	Debugf(nil, "should not appear")

	assert.True(t, strings.TrimSpace(buf.String()) == "")
}

func TestErrorfNilSubject(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	require.NoError(t, SetLevel("info"))

	Errorf(nil, "segment %d missing", 7)

	assert.Contains(t, buf.String(), "segment 7 missing")
	assert.Contains(t, buf.String(), "obj=-")
}
