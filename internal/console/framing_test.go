package console

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameScannerReadsSequentialObjects(t *testing.T) {
	s := newFrameScanner(strings.NewReader(`{"msg":"NextApp"}{"msg":"PreviousApp"}`))

	first, err := s.next()
	require.NoError(t, err)
	assert.Equal(t, `{"msg":"NextApp"}`, string(first))

	second, err := s.next()
	require.NoError(t, err)
	assert.Equal(t, `{"msg":"PreviousApp"}`, string(second))
}

func TestFrameScannerIgnoresBracesInsideStrings(t *testing.T) {
	s := newFrameScanner(strings.NewReader(`{"msg":"Set","data":{"note":"a } b { c"}}`))

	frame, err := s.next()
	require.NoError(t, err)
	assert.Equal(t, `{"msg":"Set","data":{"note":"a } b { c"}}`, string(frame))
}

func TestFrameScannerHandlesEscapedQuotes(t *testing.T) {
	s := newFrameScanner(strings.NewReader(`{"msg":"a \"quoted\" } value"}`))

	frame, err := s.next()
	require.NoError(t, err)
	assert.Equal(t, `{"msg":"a \"quoted\" } value"}`, string(frame))
}

func TestFrameScannerSkipsLeadingGarbage(t *testing.T) {
	s := newFrameScanner(strings.NewReader("garbage\n{\"msg\":\"NextApp\"}"))

	frame, err := s.next()
	require.NoError(t, err)
	assert.Equal(t, `{"msg":"NextApp"}`, string(frame))
}

func TestFrameScannerReturnsErrorOnTruncatedObject(t *testing.T) {
	s := newFrameScanner(strings.NewReader(`{"msg":"NextApp"`))

	_, err := s.next()
	assert.Error(t, err)
}
