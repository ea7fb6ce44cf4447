// Package rules intercepts inbound messages with deterministic detectors
// before the dialogue backend is consulted: known sales objections get
// canned replies, greeting-only messages on conversations with substantial
// history get a summary-and-resume reply, and checklist queries are
// answered from the record. First match wins; a matched rule fully replaces
// the backend for that message.
package rules

import (
	"regexp"
	"strings"

	"github.com/valentimdigital/IADESPEDIDA/internal/record"
)

// Objection kinds, used for metrics labels.
const (
	KindPrice       = "price"
	KindCoverage    = "coverage"
	KindContract    = "contract"
	KindTrust       = "trust"
	KindProcess     = "process"
	KindInstallment = "installment"
)

var (
	priceRe       = regexp.MustCompile(`(?i)\b(caro|preço\s+alto|muito\s+caro|não\s+tenho\s+dinheiro|orçamento|barato)\b`)
	coverageRe    = regexp.MustCompile(`(?i)\b(não\s+tem|indisponível|não\s+chega|fibra\s+não)\b`)
	contractRe    = regexp.MustCompile(`(?i)\b(fidelização|contrato|multa|sair|cancelar)\b`)
	trustRe       = regexp.MustCompile(`(?i)\b(confiança|segurança|qualidade|problema|instabilidade)\b`)
	processRe     = regexp.MustCompile(`(?i)\b(demora|complexo|difícil|burocrático|documentos)\b`)
	installmentRe = regexp.MustCompile(`(?i)\b(parcelar|parcela|parcelamento|dividir|financiar)\b`)

	greetingAnyRe    = regexp.MustCompile(`(?i)\b(oi|olá|bom dia|boa tarde|boa noite|tudo bem|como vai)\b`)
	greetingOnlyRe   = regexp.MustCompile(`(?i)^(oi|olá|ola|bom dia|boa tarde|boa noite|hey|hi)[!.\s]*$`)
	checklistQueryRe = regexp.MustCompile(`(?i)\bo que falta\b|\bfalta algo\b|\bfaltando\b|\bpendenc`)
	docsSentRe       = regexp.MustCompile(`(?i)enviei|mandei|acabei de enviar|enviado`)
)

// oldConversationMinHistory is the number of stored turns (three exchanges)
// after which a bare greeting is treated as a returning customer.
const oldConversationMinHistory = 6

type detector struct {
	kind string
	re   *regexp.Regexp
}

// Ordered; first match wins.
var detectors = []detector{
	{KindPrice, priceRe},
	{KindCoverage, coverageRe},
	{KindContract, contractRe},
	{KindTrust, trustRe},
	{KindProcess, processRe},
	{KindInstallment, installmentRe},
}

type Interceptor struct {
	replies Replies
}

func New(replies Replies) *Interceptor {
	return &Interceptor{replies: replies}
}

// MatchObjection runs the ordered objection detectors over text. On a match
// it returns the canned reply and the objection kind.
func (i *Interceptor) MatchObjection(text string, rec *record.Record) (reply, kind string, ok bool) {
	for _, d := range detectors {
		if !d.re.MatchString(text) {
			continue
		}
		if d.kind == KindPrice {
			price := rec.NomenclaturaPlano
			if price == "" {
				price = i.replies.DefaultPlanPrice
			}
			return strings.ReplaceAll(i.replies.PriceObjection, "{price}", price), d.kind, true
		}
		return i.repliesFor(d.kind), d.kind, true
	}
	return "", "", false
}

func (i *Interceptor) repliesFor(kind string) string {
	switch kind {
	case KindCoverage:
		return i.replies.CoverageObjection
	case KindContract:
		return i.replies.ContractObjection
	case KindTrust:
		return i.replies.TrustObjection
	case KindProcess:
		return i.replies.ProcessObjection
	case KindInstallment:
		return i.replies.InstallmentQuestion
	}
	return ""
}

// IsOldConversation reports whether a minimal greeting arrived on a
// conversation that already carries substantial history.
func IsOldConversation(history []record.Turn, text string) bool {
	return len(history) >= oldConversationMinHistory &&
		greetingAnyRe.MatchString(text) &&
		greetingOnlyRe.MatchString(strings.TrimSpace(text))
}

// OldConversationReply synthesizes a summary-and-resume reply from the
// record instead of calling the backend.
func OldConversationReply(rec *record.Record) string {
	var b strings.Builder
	b.WriteString("Vejo que você já estava negociando conosco! ")
	if rec.CNPJ != "" {
		b.WriteString("CNPJ " + rec.CNPJ + ". ")
	}
	if plan := rec.Plano; plan != "" {
		b.WriteString("Plano: " + plan + ". ")
	}
	if rec.Endereco != "" {
		b.WriteString("Endereço: " + rec.Endereco + ". ")
	}
	b.WriteString("Quer retomar a negociação? Posso ajudar com:")
	b.WriteString("\n• Finalizar documentação")
	b.WriteString("\n• Agendar instalação")
	b.WriteString("\n• Alterar plano")
	b.WriteString("\n• Outras dúvidas")
	return b.String()
}

// IsChecklistQuery reports whether text asks what is still missing.
func IsChecklistQuery(text string) bool {
	return checklistQueryRe.MatchString(text)
}

// IsDocumentsSent reports whether text announces that documents were sent.
func IsDocumentsSent(text string) bool {
	return docsSentRe.MatchString(text)
}

// ChecklistReply renders the outstanding-fields list for a "what's missing"
// question.
func (i *Interceptor) ChecklistReply(rec *record.Record) string {
	missing := rec.Checklist()
	if len(missing) == 0 {
		return "Ótimo, não há pendências críticas na ficha no momento. Posso avançar para os próximos passos."
	}
	return "Para concluirmos, ainda falta(m):\n" + strings.Join(missing, "\n") +
		"\n\nSe preferir, pode enviar por e-mail: " + i.replies.DocsEmail + " e me avisar por aqui."
}

// DocumentsReply acknowledges a documents-sent message, listing what is
// still outstanding.
func (i *Interceptor) DocumentsReply(rec *record.Record) string {
	missing := rec.Checklist()
	if len(missing) == 0 {
		return "Perfeito! Com todos os dados coletados, vou processar sua solicitação. O setor administrativo entrará em contato para finalizar a formalização."
	}
	return "Entendi que você enviou os documentos. Para finalizarmos, ainda preciso de:\n" + strings.Join(missing, "\n") + "\n\nPode me enviar por aqui?"
}

// MediaReply acknowledges a media-only message (image or document without
// caption), pointing at the validation flow.
func (i *Interceptor) MediaReply(rec *record.Record) string {
	missing := rec.Checklist()
	if len(missing) == 0 {
		return "Recebi o arquivo. A validação é feita pelo setor administrativo. Se puder, me avise aqui quando enviar também para o e-mail corporativo: " + i.replies.DocsEmail + "."
	}
	return "Recebi o arquivo. Para proteger seus dados, a validação é feita pelo setor administrativo.\n\nEnquanto isso, falta(m):\n" + strings.Join(missing, "\n") +
		"\n\nSe preferir, pode enviar os documentos para o e-mail corporativo: " + i.replies.DocsEmail + " e me avisar aqui para eu seguir."
}

// AskCNPJReply is sent when a message carries a valid CPF but no valid CNPJ.
func (i *Interceptor) AskCNPJReply() string {
	return i.replies.AskCNPJ
}

// YoungCompanyReply is appended to a registry summary when the company is
// younger than the minimum accepted age.
func (i *Interceptor) YoungCompanyReply() string {
	return i.replies.YoungCompany
}
