package json

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	ID    string   `json:"id"`
	Value float64  `json:"value"`
	Tags  []string `json:"tags"`
	HTML  string   `json:"html,omitempty"`
}

func TestMarshalMatchesStandardLibrary(t *testing.T) {
	rec := testRecord{ID: "a1", Value: 1.5, Tags: []string{"x", "y"}}

	got, err := Marshal(rec)
	require.NoError(t, err)
	want, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))

	var back testRecord
	require.NoError(t, Unmarshal(got, &back))
	assert.Equal(t, rec, back)
}

func TestMarshalToBufferUsesPool(t *testing.T) {
	before := BufferStats()

	buf, err := MarshalToBuffer(testRecord{ID: "b2", HTML: "<b>"})
	require.NoError(t, err)
	assert.Equal(t, "{\"id\":\"b2\",\"value\":0,\"tags\":null,\"html\":\"<b>\"}\n", buf.String())
	PutBuffer(buf)

	after := BufferStats()
	assert.Greater(t, after.TotalGets, before.TotalGets)
	assert.Greater(t, after.TotalReturns, before.TotalReturns)
}

func TestBuffersComeBackEmpty(t *testing.T) {
	buf := GetBuffer()
	buf.WriteString("leftover")
	PutBuffer(buf)

	for i := 0; i < 4; i++ {
		b := GetBuffer()
		assert.Zero(t, b.Len())
		defer PutBuffer(b)
	}
}

func TestPutBufferShrinksOversizedBuffers(t *testing.T) {
	buf := GetBuffer()
	buf.Grow(2 * maxBufferSize)
	PutBuffer(buf)
	assert.LessOrEqual(t, buf.Cap(), maxBufferSize)
	PutBuffer(nil)
}

func TestMarshalMultipleAndArray(t *testing.T) {
	values := []interface{}{map[string]int{"a": 1}, []int{1, 2}, "s"}

	multi, err := MarshalMultiple(values, []byte("\n"))
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n[1,2]\n\"s\"", string(multi))

	arr, err := MarshalArray(values)
	require.NoError(t, err)
	assert.Equal(t, "[{\"a\":1},[1,2],\"s\"]", string(arr))

	empty, err := MarshalArray(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}

func TestStreamingEncoder(t *testing.T) {
	var out bytes.Buffer
	se, err := NewStreamingEncoder(&out, true)
	require.NoError(t, err)
	require.NoError(t, se.Encode(map[string]int{"n": 1}))
	require.NoError(t, se.Encode(map[string]int{"n": 2}))
	require.NoError(t, se.Close())

	var decoded []map[string]int
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, []map[string]int{{"n": 1}, {"n": 2}}, decoded)

	var lines bytes.Buffer
	se, err = NewStreamingEncoder(&lines, false)
	require.NoError(t, err)
	require.NoError(t, se.Encode(1))
	require.NoError(t, se.Encode(2))
	require.NoError(t, se.Close())
	assert.Equal(t, []string{"1", "2", ""}, strings.Split(lines.String(), "\n"))
}
