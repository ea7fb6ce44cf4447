package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valentimdigital/IADESPEDIDA/internal/record"
)

func TestLoaderBase_DirectUsesLightFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "sys_inst.light.config"), []byte("persona leve\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(dir)
	if got := l.Base("5521999999999@s.whatsapp.net", false); got != "persona leve" {
		t.Errorf("base = %q", got)
	}
}

func TestLoaderBase_GroupPrefersPerGroupFile(t *testing.T) {
	dir := t.TempDir()
	// Conversation IDs are sanitized before hitting the filesystem, so the
	// group "grupo@g.us" maps to this file name.
	if err := os.WriteFile(filepath.Join(dir, "sys_inst.grupo_g.us.config"), []byte("persona do grupo"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sys_inst.default.config"), []byte("persona default"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(dir)
	if got := l.Base("grupo@g.us", true); got != "persona do grupo" {
		t.Errorf("base = %q", got)
	}
	if got := l.Base("outro@g.us", true); got != "persona default" {
		t.Errorf("fallback base = %q", got)
	}
}

func TestLoaderBase_BuiltinFallback(t *testing.T) {
	l := NewLoader("")
	direct := l.Base("x@s.whatsapp.net", false)
	group := l.Base("g@g.us", true)
	if direct == "" || group == "" {
		t.Fatal("builtin personas must not be empty")
	}
	if direct == group {
		t.Error("direct and group personas should differ")
	}
}

func TestBuildSystemInstruction(t *testing.T) {
	var empty record.Record
	inst := BuildSystemInstruction("persona", &empty)
	if !strings.HasPrefix(inst, "[REGRAS DE CONTINUIDADE") {
		t.Errorf("continuity rules must come first: %s", inst[:40])
	}
	if !strings.Contains(inst, "persona") {
		t.Error("base persona missing")
	}
	if strings.Contains(inst, "[FICHA - CONTEXTO ATUAL]") {
		t.Error("empty record must not add a ficha block")
	}

	rec := record.Record{CNPJ: "11222333000181", RazaoSocial: "ACME LTDA"}
	inst = BuildSystemInstruction("persona", &rec)
	if !strings.Contains(inst, "[FICHA - CONTEXTO ATUAL]") {
		t.Error("ficha block missing")
	}
	if !strings.Contains(inst, "EMPRESA CONFIRMADA: ACME LTDA (11222333000181)") {
		t.Errorf("digest missing from instruction: %s", inst)
	}
}

func TestClassifyOffer(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  OfferKind
	}{
		{"mobile with price", "Plano 100 GB por R$ 139,99 mensais", OfferMobile},
		{"black empresa", "TIM Black Empresa sai por R$ 1.299,90", OfferMobile},
		{"fiber with price", "Ultra Fibra 700 Mega por R$ 99,90", OfferFiber},
		{"giga fiber", "1 Giga de velocidade por R$ 199,90", OfferFiber},
		{"mobile without price", "Temos planos de 100 GB para sua empresa", OfferNone},
		{"price without plan", "O valor é R$ 139,99", OfferNone},
		{"mobile beats fiber", "Combo fibra + 50 GB móvel por R$ 239,80", OfferMobile},
		{"plain reply", "Perfeito, vou verificar para você.", OfferNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyOffer(tt.reply); got != tt.want {
				t.Errorf("ClassifyOffer(%q) = %v, want %v", tt.reply, got, tt.want)
			}
		})
	}
}
