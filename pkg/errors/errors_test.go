package errors

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCapturesStack(t *testing.T) {
	err := New(ErrorTypeValidation, "bad")
	require.NotEmpty(t, err.Stack)
	assert.Contains(t, err.Stack[0].Function, "TestNewCapturesStack")
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeInternal, "nothing"))
}

func TestWrapPreservesStack(t *testing.T) {
	inner := New(ErrorTypeFactory, "boom")
	outer := Wrap(inner, ErrorTypeConfig, "outer")

	assert.Equal(t, inner.Stack, outer.Stack)
	assert.True(t, IsType(outer, ErrorTypeConfig))
	assert.ErrorIs(t, outer, inner)
}

func TestNewf(t *testing.T) {
	err := Newf(ErrorTypeValidation, "capacity %d out of range", -1)
	assert.Equal(t, "validation: capacity -1 out of range", err.Error())
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeValidation, "x").WithDetail("a", 1).WithDetail("b", "two")
	assert.Equal(t, map[string]interface{}{"a": 1, "b": "two"}, err.Details)
}

func TestAsForeignError(t *testing.T) {
	var target *Error
	assert.False(t, As(io.EOF, &target))
	assert.False(t, IsType(io.EOF, ErrorTypeInternal))
}
