package di

import (
	"testing"

	"solsentinel/internal/config"
	"solsentinel/internal/domain"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestResolveParamsUsesConfigDefaultsWhenNoOverrides(t *testing.T) {
	cfg := config.Config{SolPerTrade: 0.5, MaxPaperPositions: 50, MaxMicroPositions: 20, MicroSnipeSOL: 0.07}
	p := resolveParams(cfg, domain.RuntimeSettings{})

	if got := p.SolPerTrade.InexactFloat64(); got != 0.5 {
		t.Fatalf("expected SolPerTrade 0.5, got %v", got)
	}
	if p.MaxPaperPositions != 50 {
		t.Fatalf("expected MaxPaperPositions 50, got %d", p.MaxPaperPositions)
	}
	if p.MaxMicroPositions != 20 {
		t.Fatalf("expected MaxMicroPositions 20, got %d", p.MaxMicroPositions)
	}
}

func TestResolveParamsRuntimeSettingsOverrideConfig(t *testing.T) {
	cfg := config.Config{SolPerTrade: 0.5, MaxPaperPositions: 50, MaxMicroPositions: 20, MicroSnipeSOL: 0.07}
	settings := domain.RuntimeSettings{
		SolPerTrade:       floatPtr(1.2),
		MaxPaperPositions: intPtr(10),
		MaxMicroPositions: intPtr(5),
		MicroSnipeSOL:     floatPtr(0.03),
	}

	p := resolveParams(cfg, settings)

	if got := p.SolPerTrade.InexactFloat64(); got != 1.2 {
		t.Fatalf("expected overridden SolPerTrade 1.2, got %v", got)
	}
	if p.MaxPaperPositions != 10 {
		t.Fatalf("expected overridden MaxPaperPositions 10, got %d", p.MaxPaperPositions)
	}
	if p.MaxMicroPositions != 5 {
		t.Fatalf("expected overridden MaxMicroPositions 5, got %d", p.MaxMicroPositions)
	}
	if got := p.MicroSnipeSOL.InexactFloat64(); got != 0.03 {
		t.Fatalf("expected overridden MicroSnipeSOL 0.03, got %v", got)
	}
}

func TestResolveParamsAlwaysSetsCloseOptions(t *testing.T) {
	p := resolveParams(config.Config{}, domain.RuntimeSettings{})
	if p.CloseOptions.TakeProfitX == 0 {
		t.Fatalf("expected non-zero default close options")
	}
}
