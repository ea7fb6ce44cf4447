// Package prompt assembles the system instruction sent to the dialogue
// backend and classifies backend replies for dispatch.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/valentimdigital/IADESPEDIDA/internal/record"
	"github.com/valentimdigital/IADESPEDIDA/internal/validate"
)

// ContinuityRules is prepended to every system instruction so the assistant
// never restarts a conversation whose record already carries key data.
const ContinuityRules = `[REGRAS DE CONTINUIDADE - PRIORIDADE MÁXIMA]
- Não repetir abertura se o cliente já forneceu dados-chave (porte, CNPJ, CEP, linhas, portabilidade, velocidade, endereço de entrega).
- Sempre consolidar o que já foi dito em 1 linha e avançar pedindo apenas o que falta.
- Ordem: confirmar dados -> coletar pendências -> propor/alternativa -> orientar docs e próximos passos.
- Para conversas antigas: seja direto, resuma o contexto rapidamente e foque no próximo passo.`

// defaultLight is the built-in persona used for direct conversations when no
// instruction file is present on disk.
const defaultLight = `Você é a Valentina, consultora comercial da Valentim Digital, parceira oficial TIM para empresas.
Atenda clientes PJ por WhatsApp de forma cordial e objetiva, sempre em português.
Colete CNPJ, endereço de instalação, quantidade de linhas e portabilidade antes de propor planos.
Nunca invente preços ou condições que não estejam no material de planos.`

// defaultGroup is the fallback persona for group conversations without a
// dedicated instruction file.
const defaultGroup = `Você é a Valentina, consultora comercial da Valentim Digital em um grupo de WhatsApp.
Responda apenas quando mencionada, de forma breve, e conduza assuntos comerciais para a conversa privada.`

// Loader resolves the base system instruction for a conversation. Group
// conversations may carry a per-group file named sys_inst.<id>.config in the
// configured directory, with the id sanitized to filesystem-safe characters;
// direct conversations use the light instruction.
type Loader struct {
	dir string
}

func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Base returns the system instruction for the conversation, falling back to
// the built-in texts when no file is found.
func (l *Loader) Base(conversationID string, isGroup bool) string {
	if !isGroup {
		if text := l.readFile("sys_inst.light.config"); text != "" {
			return text
		}
		return defaultLight
	}
	if text := l.readFile("sys_inst." + validate.SanitizeKey(conversationID) + ".config"); text != "" {
		return text
	}
	if text := l.readFile("sys_inst.default.config"); text != "" {
		return text
	}
	return defaultGroup
}

func (l *Loader) readFile(name string) string {
	if l.dir == "" {
		return ""
	}
	raw, err := os.ReadFile(filepath.Join(l.dir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

// BuildSystemInstruction composes the final instruction: continuity rules,
// the base persona, and the current record digest when one exists.
func BuildSystemInstruction(base string, rec *record.Record) string {
	inst := ContinuityRules + "\n\n" + base
	if rec == nil {
		return inst
	}
	digest := rec.Digest()
	if digest == "" {
		return inst
	}
	return fmt.Sprintf("%s\n\n[FICHA - CONTEXTO ATUAL]\n%s", inst, digest)
}

var (
	priceRe  = regexp.MustCompile(`(?i)\bR\$\s?\d{1,3}(?:\.\d{3})*,\d{2}\b`)
	mobileRe = regexp.MustCompile(`(?i)\b(black\s*empresa|150\s*gb|100\s*gb|50\s*gb|linhas?\s*móveis?|chips?|móvel)\b`)
	fiberRe  = regexp.MustCompile(`(?i)\b(1\s*giga|700\s*mega|400\s*mega|fibra|ultra\s*fibra)\b`)
)

// OfferKind classifies a backend reply for the outbound transport.
type OfferKind int

const (
	// OfferNone is a plain text reply.
	OfferNone OfferKind = iota
	// OfferMobile is a mobile-plan offer with a price, sent with the plans
	// image attached.
	OfferMobile
	// OfferFiber is a fiber-plan offer with a price, sent as text only.
	OfferFiber
)

// ClassifyOffer inspects a backend reply. Mobile takes precedence when a
// reply mentions both families.
func ClassifyOffer(reply string) OfferKind {
	if !priceRe.MatchString(reply) {
		return OfferNone
	}
	if mobileRe.MatchString(reply) {
		return OfferMobile
	}
	if fiberRe.MatchString(reply) {
		return OfferFiber
	}
	return OfferNone
}
