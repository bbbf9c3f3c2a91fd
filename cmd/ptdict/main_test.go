package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/milden6/ptdict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.New("NOOP")
	code := m.Run()
	logger.OnExit()
	os.Exit(code)
}

func buildDict(t *testing.T, list string, extra ...string) string {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "words.txt")
	out := filepath.Join(dir, "words.ptd")
	require.NoError(t, os.WriteFile(in, []byte(list), 0o644))

	require.NoError(t, runBuild(append([]string{"-in", in, "-out", out, "-log", "NOOP"}, extra...)))
	return out
}

func TestBuildAndQuery(t *testing.T) {
	dict := buildDict(t, "dictionary=main:en\n word=cat,f=10\n word=car,f=20\n word=cart,f=5\n  bigram=x,f=1\ndog\n",
		"-freq", "-attr", "lang=en", "-attr", "source=test")

	d, err := ptdict.Load(dict)
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, 4, d.NumWords())
	assert.Equal(t, map[string]string{"lang": "en", "source": "test"}, d.Header().Attributes)
	freq, ok, err := d.Lookup("car")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 20, freq)

	var out strings.Builder
	require.NoError(t, runQuery([]string{"-dict", dict, "car", "do", "x"}, nil, &out))
	assert.Equal(t, "car: car cart\ndo: dog\nx: \n", out.String())

	out.Reset()
	require.NoError(t, runQuery([]string{"-dict", dict, "-limit", "2", "-min", "2"}, strings.NewReader("c\nca\n"), &out))
	assert.Equal(t, "c: prefix too short\nca: car cart\n", out.String())
}

func TestBuildRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "words.txt")
	out := filepath.Join(dir, "words.ptd")
	require.NoError(t, os.WriteFile(in, []byte(" word=big,f=300\n"), 0o644))

	err := runBuild([]string{"-in", in, "-out", out, "-log", "NOOP"})
	require.ErrorIs(t, err, ptdict.ErrInvalidInput)
	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err))

	require.Error(t, runBuild([]string{"-in", in}))
}

func TestDump(t *testing.T) {
	dict := buildDict(t, "cat\ncar\n")

	var out strings.Builder
	require.NoError(t, runDump([]string{"-dict", dict}, &out))
	assert.Contains(t, out.String(), "Node array with 1 nodes")
	assert.Contains(t, out.String(), `"r" terminal`)
}

func TestAttributesFlag(t *testing.T) {
	attrs := attributes{}
	require.NoError(t, attrs.Set("a=1"))
	require.NoError(t, attrs.Set("b=x=y"))
	require.Error(t, attrs.Set("novalue"))
	require.Error(t, attrs.Set("=v"))
	assert.Equal(t, attributes{"a": "1", "b": "x=y"}, attrs)
}
