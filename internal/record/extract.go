package record

import (
	"regexp"
	"strings"

	"github.com/valentimdigital/IADESPEDIDA/internal/validate"
)

// An extraction rule inspects one normalized text and fills record fields
// still absent. Rules are pure, independent and order-insensitive with
// respect to the final record (each writes disjoint fields, fill-if-absent).
type rule struct {
	name  string
	apply func(r *Record, text string) bool
}

var (
	emailRe      = regexp.MustCompile(`[\w.+-]+@[\w.-]+\.[A-Za-z]{2,}`)
	emailShapeRe = regexp.MustCompile(`^[^@]{1,64}@.{3,255}$`)
	phoneRe      = regexp.MustCompile(`(?i)(?:tel|telefone|contato)\s*[:\-]?\s*(\+?\d{10,15})`)
	dueRe        = regexp.MustCompile(`(?i)venc(?:imento)?\s*[:\-]?\s*(\d{1,2})\b`)
	dueTailRe    = regexp.MustCompile(`(?i)\b(\d{1,2})\b[^\n]*vencimento`)
	portRe       = regexp.MustCompile(`(?i)\bportabilidade\b|\bportar\b|\btrazer\s*n[uú]mero\b`)
	negRe        = regexp.MustCompile(`(?i)\bn[aã]o\b`)
	carrierRe    = regexp.MustCompile(`(?i)operadora\s*[:\-]?\s*([A-Za-zÀ-ÿ][A-Za-zÀ-ÿ ]*)`)
	portedNumRe  = regexp.MustCompile(`\+?\d{10,15}`)
	linesRe      = regexp.MustCompile(`(?i)(\d+)\s*(?:linhas?|chips?|acessos?|n[uú]meros?)`)
	fastChipRe   = regexp.MustCompile(`(?i)fast\s*chip`)
	razaoRe      = regexp.MustCompile(`(?i)raz[aã]o\s*social\s*[:\-]?\s*(.+)`)
	repRe        = regexp.MustCompile(`(?i)representante\s*legal\s*[:\-]?\s*([\wÀ-ÿ ]+)`)
	addrRe       = regexp.MustCompile(`(?i)(?:endere[cç]o|rua|logradouro)\s*[:\-]?\s*([^\n]+)`)
	addrNumRe    = regexp.MustCompile(`(?i)n[uú]mero\s*[:\-]?\s*(\w+)`)
	addrNumTailRe = regexp.MustCompile(`(?i)\b(\d{1,5}[A-Za-z]?)\s*(?:apto|apt\.|bloco|cj|casa|fundos|complemento|,|$)`)
	complRe      = regexp.MustCompile(`(?i)complemento\s*[:\-]?\s*([^\n]+)`)
	complFreeRe  = regexp.MustCompile(`(?i)\b(apto\.?\s*\w+|bloco\s*\w+|casa\s*\w+|fundos|sobrado|loja\s*\w+)\b`)
	bairroRe     = regexp.MustCompile(`(?i)bairro\s*[:\-]?\s*(.+)`)
	cidadeRe     = regexp.MustCompile(`(?i)cidade\s*[:\-]?\s*([\wÀ-ÿ ]+)`)
	estadoRe     = regexp.MustCompile(`(?i)estado\s*[:\-]?\s*([A-Za-z]{2})\b`)
	priceRe      = regexp.MustCompile(`R\$\s?\d{1,3}(?:\.\d{3})*,\d{2}`)
	mobileDataRe = regexp.MustCompile(`(?i)\b(\d+\s*gb)\b`)
	blackRe      = regexp.MustCompile(`(?i)black\s*empresa`)
	fiberSpeedRe = regexp.MustCompile(`(?i)\b(\d+\s*(?:giga|mega))\b`)
	fiberRe      = regexp.MustCompile(`(?i)\bfibra\b`)
)

func firstGroup(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

var rules = []rule{
	{"email", func(r *Record, text string) bool {
		email := emailRe.FindString(text)
		if email == "" || !emailShapeRe.MatchString(email) {
			return false
		}
		return setIf(&r.Email, email)
	}},
	{"cep", func(r *Record, text string) bool {
		return setIf(&r.CEP, validate.FirstCEP(text))
	}},
	{"cnpj", func(r *Record, text string) bool {
		// Only checksum-valid candidates are stored.
		return setIf(&r.CNPJ, validate.FirstCNPJ(text))
	}},
	{"cpf", func(r *Record, text string) bool {
		return setIf(&r.CPF, validate.FirstCPF(text))
	}},
	{"telefone", func(r *Record, text string) bool {
		return setIf(&r.Telefone1, firstGroup(phoneRe, text))
	}},
	{"vencimento", func(r *Record, text string) bool {
		day := firstGroup(dueRe, text)
		if day == "" {
			day = firstGroup(dueTailRe, text)
		}
		changed := setIf(&r.Vencimento, day)
		return setIf(&r.DataVencimento, day) || changed
	}},
	{"portabilidade", func(r *Record, text string) bool {
		if !portRe.MatchString(text) {
			return false
		}
		answer := "Sim"
		if negRe.MatchString(text) {
			answer = "Não"
		}
		changed := setIf(&r.Portabilidade, answer)
		carrier := firstGroup(carrierRe, text)
		if setIf(&r.Operadora, carrier) {
			changed = true
		}
		if setIf(&r.NumeroPortado, portedNumRe.FindString(text)) {
			changed = true
		}
		// Same-carrier porting is an unsupported path; surfaced as a flag,
		// the blocking policy stays with the rule layer.
		if carrier != "" && strings.Contains(strings.ToLower(carrier), "tim") && !r.MigracaoTimParaTim {
			r.MigracaoTimParaTim = true
			changed = true
		}
		return changed
	}},
	{"linhas", func(r *Record, text string) bool {
		return setIf(&r.TotalAcessos, firstGroup(linesRe, text))
	}},
	{"fastchip", func(r *Record, text string) bool {
		if !fastChipRe.MatchString(text) {
			return false
		}
		answer := "Sim"
		if negRe.MatchString(text) {
			answer = "Não"
		}
		return setIf(&r.FastChip, answer)
	}},
	{"razao_social", func(r *Record, text string) bool {
		return setIf(&r.RazaoSocial, firstGroup(razaoRe, text))
	}},
	{"representante", func(r *Record, text string) bool {
		return setIf(&r.RepresentanteLegal, firstGroup(repRe, text))
	}},
	{"endereco", func(r *Record, text string) bool {
		addr := firstGroup(addrRe, text)
		num := firstGroup(addrNumRe, text)
		if num == "" {
			num = firstGroup(addrNumTailRe, text)
		}
		compl := firstGroup(complRe, text)
		if compl == "" {
			compl = complFreeRe.FindString(text)
		}
		if addr == "" && num == "" && compl == "" {
			return false
		}
		var parts []string
		for _, p := range []string{addr, num, compl} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		changed := setIf(&r.Endereco, strings.Join(parts, ", "))
		return setIf(&r.Complemento, compl) || changed
	}},
	{"bairro", func(r *Record, text string) bool {
		return setIf(&r.Bairro, firstGroup(bairroRe, text))
	}},
	{"cidade", func(r *Record, text string) bool {
		return setIf(&r.Cidade, firstGroup(cidadeRe, text))
	}},
	{"estado", func(r *Record, text string) bool {
		return setIf(&r.Estado, firstGroup(estadoRe, text))
	}},
	{"plano", func(r *Record, text string) bool {
		price := priceRe.FindString(text)
		changed := false
		if data := firstGroup(mobileDataRe, text); data != "" || blackRe.MatchString(text) {
			if data != "" {
				changed = setIf(&r.Plano, "TIM Black Empresa "+strings.ToUpper(data))
			}
			if setIf(&r.NomenclaturaPlano, price) {
				changed = true
			}
		}
		if speed := firstGroup(fiberSpeedRe, text); speed != "" || fiberRe.MatchString(text) {
			if speed != "" {
				if setIf(&r.Plano, "Fibra "+strings.ToUpper(speed)) {
					changed = true
				}
			}
			if setIf(&r.NomenclaturaPlano, price) {
				changed = true
			}
		}
		return changed
	}},
}

// Merge applies every extraction rule to text, filling fields still absent.
// Idempotent: merging the same text twice yields the same record. Returns
// whether any field changed.
func (r *Record) Merge(text string) bool {
	if text == "" {
		return false
	}
	changed := false
	for _, ru := range rules {
		if ru.apply(r, text) {
			changed = true
		}
	}
	return changed
}

// Reconcile re-applies the extraction rules over a stored exchange history
// to recover fields an earlier pass missed. Safe to call repeatedly; never
// downgrades an already-set field.
func (r *Record) Reconcile(history []Turn) bool {
	changed := false
	for _, turn := range history {
		if r.Merge(turn.Text) {
			changed = true
		}
	}
	return changed
}
