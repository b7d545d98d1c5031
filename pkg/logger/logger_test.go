package logger_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	pcontext "github.com/cryexport/cryexport/pkg/context"
	"github.com/cryexport/cryexport/pkg/logger"
)

func TestCreateLogger(t *testing.T) {
	log := logger.CreateLogger("", "info")
	if log == nil {
		t.Fatal("expected logger to be created")
	}
}

func TestLogger_WithStep(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("info", &buf)

	log.WithStep("package-assets").Info("Created textures.pak")

	output := buf.String()
	if !strings.Contains(output, "[package-assets]") {
		t.Errorf("expected step name in log output, got %q", output)
	}
	if !strings.Contains(output, "Created textures.pak") {
		t.Error("expected message in log output")
	}
}

func TestLogger_Success(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("info", &buf)

	log.Success("export completed")

	if !strings.Contains(buf.String(), "✅ export completed") {
		t.Error("expected success message in log output")
	}
}

func TestLogger_FieldsAreSorted(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("info", &buf)

	log.Info("copied",
		logger.WithField("zeta", 1),
		logger.WithField("alpha", "x"),
	)

	if !strings.Contains(buf.String(), "{alpha=x, zeta=1}") {
		t.Errorf("expected sorted fields, got %q", buf.String())
	}
}

func TestLogger_ErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("error", &buf)

	log.Debug("should not appear")
	log.Info("should not appear")
	log.Warn("should not appear")
	log.Error("should appear")

	output := buf.String()
	if strings.Contains(output, "should not appear") {
		t.Error("lower level logs should not appear with error level")
	}
	if !strings.Contains(output, "should appear") {
		t.Error("error level log should appear")
	}
}

func TestWithContext_AddsRunID(t *testing.T) {
	var buf bytes.Buffer
	base := logger.CreateLoggerWithOutput("info", &buf)

	ctx := pcontext.WithRunID(context.Background(), "run_test")
	ctx = pcontext.WithOperation(ctx, "export")
	log := logger.WithContext(ctx, base).WithStep("resolve")
	log.Info("resolved engine")

	output := buf.String()
	if !strings.Contains(output, "run_id=run_test") {
		t.Errorf("expected run id in output, got %q", output)
	}
	if !strings.Contains(output, "operation=export") {
		t.Errorf("expected operation in output, got %q", output)
	}
	if !strings.Contains(output, "[resolve]") {
		t.Errorf("expected step in output, got %q", output)
	}
}

func TestConsoleLogger(t *testing.T) {
	var out, errOut bytes.Buffer
	c := logger.NewConsoleLogger(&out, &errOut)

	c.Info("info line")
	c.Error("error line")

	if !strings.Contains(out.String(), "info line") {
		t.Error("expected info on stdout writer")
	}
	if !strings.Contains(errOut.String(), "error line") {
		t.Error("expected error on stderr writer")
	}
}
