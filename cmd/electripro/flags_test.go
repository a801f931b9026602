package main

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	now := time.Date(2026, time.March, 13, 10, 0, 0, 0, time.UTC) // Friday

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"2026-04-01", "2026-04-01"},
		{"tomorrow", "2026-03-14"},
		{"next monday", "2026-03-16"},
	}
	for _, tt := range tests {
		got, err := parseDate(tt.in, now)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := parseDate("whenever", now)
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1234.5", "1234.5"},
		{"1234,5", "1234.5"},
		{"$ 1.234.567,89", "1234567.89"},
		{"-45000", "-45000"},
	}
	for _, tt := range tests {
		got, err := parseAmount(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "%s => %s", tt.in, got)
	}

	_, err := parseAmount("mucho")
	assert.Error(t, err)
}

func TestChangedFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "x", Run: func(*cobra.Command, []string) {}}
	cmd.Flags().String("price", "", "")
	cmd.Flags().String("name", "", "")
	cmd.Flags().Int("qty", 0, "")
	require.NoError(t, cmd.ParseFlags([]string{"--price", "1500,50", "--qty", "0"}))

	p, err := changedAmount(cmd, "price")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, p.Equal(decimal.RequireFromString("1500.5")))

	assert.Nil(t, changedString(cmd, "name"))
	q := changedInt(cmd, "qty")
	require.NotNil(t, q)
	assert.Zero(t, *q)
}

func TestDataURL(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgowMDAw", dataURL(png))
}
