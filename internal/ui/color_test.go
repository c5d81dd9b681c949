package ui

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

// captureColorOutput captures output from the color package.
// The color package uses color.Output which defaults to os.Stdout.
func captureColorOutput(fn func()) string {
	// Save original state
	oldNoColor := color.NoColor
	oldOutput := color.Output

	// Configure for testing
	color.NoColor = true

	// Create pipe
	r, w, _ := os.Pipe()

	// Set color.Output to our pipe
	color.Output = w

	// Also redirect os.Stdout for fmt.Printf calls
	oldStdout := os.Stdout
	os.Stdout = w

	// Run the function
	fn()

	// Close writer
	w.Close()

	// Restore
	color.Output = oldOutput
	color.NoColor = oldNoColor
	os.Stdout = oldStdout

	// Read output
	var buf bytes.Buffer
	io.Copy(&buf, r)
	r.Close()

	return buf.String()
}

func TestSuccess(t *testing.T) {
	output := captureColorOutput(func() {
		Success("operation completed")
	})
	assert.Contains(t, output, "operation completed")
	assert.Contains(t, output, "\n")
}

func TestSuccess_WithArgs(t *testing.T) {
	output := captureColorOutput(func() {
		Success("rendered %d templates", 3)
	})
	assert.Contains(t, output, "rendered 3 templates")
}

func TestError(t *testing.T) {
	output := captureColorOutput(func() {
		Error("something failed")
	})
	assert.Contains(t, output, "something failed")
	assert.Contains(t, output, "\n")
}

func TestError_WithArgs(t *testing.T) {
	output := captureColorOutput(func() {
		Error("failed with code %d: %s", 500, "internal error")
	})
	assert.Contains(t, output, "failed with code 500: internal error")
}

func TestWarning(t *testing.T) {
	output := captureColorOutput(func() {
		Warning("be careful")
	})
	assert.Contains(t, output, "be careful")
	assert.Contains(t, output, "\n")
}

func TestWarning_WithArgs(t *testing.T) {
	output := captureColorOutput(func() {
		Warning("deprecated: use %s instead", "newFunc")
	})
	assert.Contains(t, output, "deprecated: use newFunc instead")
}

func TestInfo(t *testing.T) {
	output := captureColorOutput(func() {
		Info("informational message")
	})
	assert.Contains(t, output, "informational message")
	assert.Contains(t, output, "\n")
}

func TestInfo_WithArgs(t *testing.T) {
	output := captureColorOutput(func() {
		Info("version: %s", "1.0.0")
	})
	assert.Contains(t, output, "version: 1.0.0")
}

func TestHeader(t *testing.T) {
	output := captureColorOutput(func() {
		Header("Section Title")
	})
	assert.Contains(t, output, "Section Title")
	assert.Contains(t, output, "\n")
}

func TestHeader_WithArgs(t *testing.T) {
	output := captureColorOutput(func() {
		Header("Rendering %s...", "chart")
	})
	assert.Contains(t, output, "Rendering chart...")
}

func TestPlain(t *testing.T) {
	output := captureColorOutput(func() {
		Plain("plain %s", "text")
	})
	assert.Contains(t, output, "plain text")
	assert.Contains(t, output, "\n")
}
