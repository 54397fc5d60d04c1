package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunProtectionStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("text", func(t *testing.T) {
		protection := &mockProtectionUseCase{}
		protection.On("Status", ctx).Return(true, "config", nil).Once()

		var out bytes.Buffer
		require.NoError(t, RunProtectionStatus(ctx, protection, &out, "text"))
		assert.Equal(t, "Patient protection: enabled (source: config)\n", out.String())
		protection.AssertExpectations(t)
	})

	t.Run("json", func(t *testing.T) {
		protection := &mockProtectionUseCase{}
		protection.On("Status", ctx).Return(false, "setting", nil).Once()

		var out bytes.Buffer
		require.NoError(t, RunProtectionStatus(ctx, protection, &out, "json"))

		var result map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		assert.Equal(t, false, result["enabled"])
		assert.Equal(t, "setting", result["source"])
	})

	t.Run("error", func(t *testing.T) {
		protection := &mockProtectionUseCase{}
		protection.On("Status", ctx).Return(true, "", errors.New("db down")).Once()

		err := RunProtectionStatus(ctx, protection, &bytes.Buffer{}, "text")
		assert.ErrorContains(t, err, "failed to read patient protection setting")
	})
}

func TestRunSetProtection(t *testing.T) {
	ctx := context.Background()

	t.Run("disable", func(t *testing.T) {
		protection := &mockProtectionUseCase{}
		protection.On("SetEnabled", ctx, false).Return(nil).Once()

		var out bytes.Buffer
		require.NoError(t, RunSetProtection(ctx, protection, discardLogger(), &out, false))
		assert.Equal(t, "Patient protection disabled\n", out.String())
		protection.AssertExpectations(t)
	})

	t.Run("enable", func(t *testing.T) {
		protection := &mockProtectionUseCase{}
		protection.On("SetEnabled", ctx, true).Return(nil).Once()

		var out bytes.Buffer
		require.NoError(t, RunSetProtection(ctx, protection, discardLogger(), &out, true))
		assert.Equal(t, "Patient protection enabled\n", out.String())
	})

	t.Run("error", func(t *testing.T) {
		protection := &mockProtectionUseCase{}
		protection.On("SetEnabled", ctx, true).Return(errors.New("read only")).Once()

		err := RunSetProtection(ctx, protection, discardLogger(), &bytes.Buffer{}, true)
		assert.ErrorContains(t, err, "failed to update patient protection setting")
	})
}
