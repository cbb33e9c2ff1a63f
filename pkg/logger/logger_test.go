package logger

import (
	"context"
	"errors"
	"go/parser"
	"go/token"
	"io/fs"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestLogger_WithAddsFields(t *testing.T) {
	core, logs := observer.New(LevelDebug)
	l := FromZap(zap.New(core)).With(Component("gate"))

	l.Info("decision", UserID("u1"), Allowed(false), Err(errors.New("blocked")))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "decision", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "gate", fields["component"])
	assert.Equal(t, "u1", fields["user_id"])
	assert.Equal(t, false, fields["allowed"])
	assert.Equal(t, "blocked", fields["error"])
}

func TestFromContext(t *testing.T) {
	core, logs := observer.New(LevelInfo)
	l := FromZap(zap.New(core))

	ctx := WithContext(context.Background(), l)
	FromContext(ctx).Info("hello")
	assert.Equal(t, 1, logs.Len())

	// missing logger falls back to a no-op
	FromContext(context.Background()).Info("dropped")
	assert.Equal(t, 1, logs.Len())
}

func TestProductionSourcesDoNotImportTesting(t *testing.T) {
	pkgs, err := parser.ParseDir(token.NewFileSet(), ".", func(fi fs.FileInfo) bool {
		return !strings.HasSuffix(fi.Name(), "_test.go")
	}, parser.ImportsOnly)
	require.NoError(t, err)
	require.NotEmpty(t, pkgs)

	for _, pkg := range pkgs {
		for name, f := range pkg.Files {
			for _, imp := range f.Imports {
				path, err := strconv.Unquote(imp.Path.Value)
				require.NoError(t, err)
				assert.NotEqual(t, "testing", path, name)
				assert.False(t, strings.HasPrefix(path, "go.uber.org/zap/zaptest"), name)
			}
		}
	}
}
