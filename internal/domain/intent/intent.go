// Package intent classifies a user turn into social, product-purchase or regulatory.
package intent

import (
	"regexp"
	"strings"
)

// Rule is a named pattern. Names show up in logs and tests.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// Matches reports whether the rule fires on an already normalized message.
func (r Rule) Matches(normalized string) bool { return r.Pattern.MatchString(normalized) }

// SocialRules match whole messages that are only a greeting or a courtesy phrase.
var SocialRules = []Rule{
	{Name: "courtesy", Pattern: regexp.MustCompile(
		`^(bonjour|salut|hello|hi|hey|coucou|bonsoir|merci|au revoir|bye|à bientôt|bonne journée|bonne soirée|` +
			`comment ça va|ça va|ok|d'accord|entendu|compris|parfait|super|génial|cool|bien|oui|non)[\s?!.,]*$`)},
}

// PurchaseRules match buying or recommendation vocabulary anywhere in the message.
var PurchaseRules = []Rule{
	{Name: "quote", Pattern: regexp.MustCompile(`devis|prix|tarif`)},
	{Name: "order", Pattern: regexp.MustCompile(`commander|acheter|achat|commande`)},
	{Name: "supply", Pattern: regexp.MustCompile(`fournir|fournisseur`)},
	{Name: "advice", Pattern: regexp.MustCompile(`proposer|recommand|suggérer|conseiller`)},
	{Name: "which-product", Pattern: regexp.MustCompile(`quelle.*marque|quelle.*solution|quelle.*équipement`)},
	{Name: "equipment-need", Pattern: regexp.MustCompile(`besoin.*équipement|cherche.*équipement|recherche.*équipement`)},
}

// ProductRules match catalogue product names and families.
var ProductRules = []Rule{
	{Name: "catalogue", Pattern: regexp.MustCompile(`architac|tachosocial|tchogest|tm401|locabox|optilevel|carbu md2`)},
	{Name: "access-control", Pattern: regexp.MustCompile(`rfid|badge|contrôle d'accès|lecteur|concentrateur`)},
}

// Result is the classification of one message.
type Result struct {
	IsSocial         bool
	IsProductIntent  bool
	ProductMentioned bool
	Matched          []string
}

// Classifier applies the rule tables. The zero value is not usable; call New or Default.
type Classifier struct {
	social   []Rule
	purchase []Rule
	products []Rule
}

// New builds a classifier from explicit rule tables.
func New(social, purchase, products []Rule) *Classifier {
	return &Classifier{social: social, purchase: purchase, products: products}
}

// Default returns a classifier over the package rule tables.
func Default() *Classifier {
	return New(SocialRules, PurchaseRules, ProductRules)
}

// Normalize trims and lower-cases a message.
func Normalize(message string) string {
	return strings.ToLower(strings.TrimSpace(message))
}

// Classify decides whether the message is social and whether it carries purchase intent.
// A product name alone is not purchase intent.
func (c *Classifier) Classify(message string) Result {
	m := Normalize(message)
	var res Result

	if m == "" {
		return res
	}

	social := firstMatch(c.social, m, &res.Matched)
	purchase := firstMatch(c.purchase, m, &res.Matched)
	product := firstMatch(c.products, m, &res.Matched)

	res.IsSocial = social
	res.ProductMentioned = product
	res.IsProductIntent = purchase || (product && purchase)
	return res
}

func firstMatch(rules []Rule, m string, matched *[]string) bool {
	for _, r := range rules {
		if r.Matches(m) {
			*matched = append(*matched, r.Name)
			return true
		}
	}
	return false
}
