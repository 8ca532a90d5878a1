package provider

import (
	"errors"
	"testing"
	"time"
)

func TestRegistry_RegisterDefaults(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(Binding{Name: "truecaller", Enabled: true}, &fakeChecker{}); err != nil {
		t.Fatalf("register: %v", err)
	}

	binding, err := r.Get("truecaller")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if binding.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout, got %v", binding.Timeout)
	}
	if binding.Weight != 1.0 {
		t.Errorf("expected default weight 1.0, got %f", binding.Weight)
	}
}

func TestRegistry_DuplicateName(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(Binding{Name: "truecaller"}, &fakeChecker{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	err := r.Register(Binding{Name: "truecaller"}, &fakeChecker{})
	if !errors.Is(err, ErrProviderExists) {
		t.Fatalf("expected ErrProviderExists, got %v", err)
	}
}

func TestRegistry_SetEnabled(t *testing.T) {
	r := NewRegistry()

	if err := r.SetEnabled("missing", true); !errors.Is(err, ErrProviderNotFound) {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}

	_ = r.Register(Binding{Name: "truecaller", Enabled: false}, &fakeChecker{})
	if r.EnabledCount() != 0 {
		t.Fatal("provider should start disabled")
	}

	if err := r.SetEnabled("truecaller", true); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if r.EnabledCount() != 1 {
		t.Fatal("provider should be enabled")
	}
}

func TestRegistry_RecordCallStats(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(Binding{Name: "truecaller", Enabled: true}, &fakeChecker{})

	r.RecordCall("truecaller", true, 100*time.Millisecond)
	r.RecordCall("truecaller", true, 300*time.Millisecond)
	r.RecordCall("truecaller", false, 200*time.Millisecond)

	stats, err := r.StatsFor("truecaller")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Calls != 3 || stats.Successes != 2 || stats.Failures != 1 {
		t.Errorf("unexpected counters: %+v", stats)
	}
	// Rolling average of 100, 300, 200.
	if stats.AvgResponseMs != 200 {
		t.Errorf("expected avg 200ms, got %f", stats.AvgResponseMs)
	}

	// Unknown providers are ignored, not panicked on.
	r.RecordCall("missing", true, time.Millisecond)
}

func TestRegistry_ListPreservesOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"alpha", "beta", "gamma"} {
		_ = r.Register(Binding{Name: name, Enabled: true}, &fakeChecker{})
	}

	infos := r.List()
	if len(infos) != 3 {
		t.Fatalf("expected 3 providers, got %d", len(infos))
	}
	for i, want := range []string{"alpha", "beta", "gamma"} {
		if infos[i].Name != want {
			t.Errorf("position %d: expected %s, got %s", i, want, infos[i].Name)
		}
	}
}

func TestRegistry_SetDefaultTimeout(t *testing.T) {
	r := NewRegistry()
	r.SetDefaultTimeout(2500 * time.Millisecond)

	if err := r.Register(Binding{Name: "truecaller", Enabled: true}, &fakeChecker{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	binding, err := r.Get("truecaller")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if binding.Timeout != 2500*time.Millisecond {
		t.Errorf("expected configured default 2.5s, got %v", binding.Timeout)
	}

	// An explicit binding timeout still wins.
	if err := r.Register(Binding{Name: "hiya", Enabled: true, Timeout: time.Second}, &fakeChecker{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	binding, _ = r.Get("hiya")
	if binding.Timeout != time.Second {
		t.Errorf("expected explicit 1s timeout, got %v", binding.Timeout)
	}

	// Non-positive values leave the default untouched.
	r.SetDefaultTimeout(0)
	if err := r.Register(Binding{Name: "nomorobo", Enabled: true}, &fakeChecker{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	binding, _ = r.Get("nomorobo")
	if binding.Timeout != 2500*time.Millisecond {
		t.Errorf("expected default to survive SetDefaultTimeout(0), got %v", binding.Timeout)
	}
}
