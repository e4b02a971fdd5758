package jsontext

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_Separators(t *testing.T) {
	assert.Equal(t, `["docA", "docB"]`, Encode([]any{"docA", "docB"}, true))
	assert.Equal(t, `{"a": 1, "b": [true, null]}`, Encode(map[string]any{"b": []any{true, nil}, "a": 1}, true))
	assert.Equal(t, `[]`, Encode([]any{}, true))
}

func TestEncode_OrderedObject(t *testing.T) {
	obj := Object{
		{Key: "id", Value: "bench000000"},
		{Key: "input", Value: []any{Object{{Key: "role", Value: "system"}}}},
		{Key: "subset", Value: "default"},
	}
	assert.Equal(t, `{"id": "bench000000", "input": [{"role": "system"}], "subset": "default"}`, Encode(obj, false))

	v, ok := obj.Get("subset")
	assert.True(t, ok)
	assert.Equal(t, "default", v)
	_, ok = obj.Get("missing")
	assert.False(t, ok)
}

func TestEncode_StringEscapes(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		ascii bool
		want  string
	}{
		{"quotes and backslash", `say "hi" \ bye`, true, `"say \"hi\" \\ bye"`},
		{"whitespace escapes", "a\nb\tc\rd", true, `"a\nb\tc\rd"`},
		{"control char", "a\x01b", false, `"a\u0001b"`},
		{"accent ascii", "café", true, `"caf\u00e9"`},
		{"accent raw", "café", false, `"café"`},
		{"astral ascii", "😀", true, `"\ud83d\ude00"`},
		{"astral raw", "😀", false, `"😀"`},
		{"slash untouched", "a/b<c>", true, `"a/b<c>"`},
		{"del escaped ascii", "\x7f", true, `"\u007f"`},
		{"del raw", "\x7f", false, "\"\x7f\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Encode(tt.in, tt.ascii))
		})
	}
}

func TestEncode_OutputIsValidJSON(t *testing.T) {
	in := []any{"x\x02y", "naïve", int64(3), 2.5, map[string]any{"k": []string{"v"}}}
	out := Encode(in, true)

	var decoded []any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "x\x02y", decoded[0])
	assert.Equal(t, "naïve", decoded[1])
}

func TestEncode_ReflectFallback(t *testing.T) {
	assert.Equal(t, `["a", "b"]`, Encode([]string{"a", "b"}, true))
	assert.Equal(t, `[1, 2]`, Encode([]int64{1, 2}, true))
	assert.Equal(t, `{"1": "x"}`, Encode(map[int]string{1: "x"}, true))
	assert.Equal(t, `null`, Encode([]string(nil), true))
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1, "1.0"},
		{0, "0.0"},
		{0.1, "0.1"},
		{-2.5, "-2.5"},
		{123456789, "123456789.0"},
		{1e16, "1e+16"},
		{1.5e-5, "1.5e-05"},
		{0.0001, "0.0001"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFloat(tt.in), "input %v", tt.in)
	}
}
