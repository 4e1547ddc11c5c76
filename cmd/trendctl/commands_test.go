package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/telemetry-trend/internal/domain/accuracy"
)

const (
	historyJSON  = `[{"timestamp":"2024-01-01 10:00:00","value":"10"},{"timestamp":"2024-01-01T10:00:01","value":11}]`
	forecastJSON = `{"predictionPoints":[{"timestamp":"2024-01-01 10:00:01","value":"12"}]}`
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(append([]string{"trendctl"}, args...))
	return out.String(), err
}

func TestAssessPrintsReport(t *testing.T) {
	dir := t.TempDir()
	h := writeFile(t, dir, "history.json", historyJSON)
	f := writeFile(t, dir, "forecast.json", forecastJSON)

	out, err := runCLI(t, "assess", "--history", h, "--forecast", f)
	require.NoError(t, err)

	var got accuracy.Assessment
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, accuracy.StatusOK, got.Status)
	require.NotNil(t, got.Report)
	require.Equal(t, 1, got.Report.N)
	require.InDelta(t, 1.0, got.Report.MAE, 1e-9)
	require.InDelta(t, 1.0, got.Report.RMSE, 1e-9)
}

func TestAssessRequiresForecast(t *testing.T) {
	dir := t.TempDir()
	h := writeFile(t, dir, "history.json", historyJSON)

	_, err := runCLI(t, "assess", "--history", h)
	require.Error(t, err)
}

func TestRenderWritesSVG(t *testing.T) {
	dir := t.TempDir()
	h := writeFile(t, dir, "history.json", historyJSON)
	f := writeFile(t, dir, "forecast.json", forecastJSON)
	out := filepath.Join(dir, "chart.svg")

	_, err := runCLI(t, "render", "--history", h, "--forecast", f, "--out", out, "--width", "400", "--height", "200")
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Contains(t, string(data), "<svg")
}

func TestRenderRejectsUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	h := writeFile(t, dir, "history.json", historyJSON)

	_, err := runCLI(t, "render", "--history", h, "--out", filepath.Join(dir, "chart.gif"))
	require.ErrorContains(t, err, "unsupported chart format")
}

func TestRenderRejectsOversizedSurface(t *testing.T) {
	dir := t.TempDir()
	h := writeFile(t, dir, "history.json", historyJSON)

	_, err := runCLI(t, "render", "--history", h, "--out", filepath.Join(dir, "chart.png"), "--width", "100000", "--height", "100000")
	require.ErrorContains(t, err, "exceeds")
}
