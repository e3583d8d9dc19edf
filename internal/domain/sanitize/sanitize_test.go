package sanitize

import (
	"math/rand/v2"
	"strings"
	"testing"
)

func TestClean(t *testing.T) {
	s := Default()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "forbidden markdown link",
			in:   "Voir [Source](https://weblex.fr/x) pour détails.",
			want: "Voir pour détails.",
		},
		{
			name: "forbidden link inside parentheses leaves no remnant",
			in:   "Article L3121 ([Legifrance](https://legifrance.gouv.fr/a)) et ([Weblex](https://www.weblex.fr/b)).",
			want: "Article L3121 ([Legifrance](https://legifrance.gouv.fr/a)) et.",
		},
		{
			name: "parenthetical domain mention",
			in:   "Selon un article (weblex.fr) la règle change.",
			want: "Selon un article la règle change.",
		},
		{
			name: "bare url on subdomain",
			in:   "Plus d'infos: https://fr.wikipedia.org/wiki/Tachygraphe ici",
			want: "Plus d'infos: ici",
		},
		{
			name: "lookalike host is kept",
			in:   "Voir [Blog](https://notweblex.fr/a).",
			want: "Voir [Blog](https://notweblex.fr/a).",
		},
		{
			name: "nested empty parentheses",
			in:   "Texte (( )) fin",
			want: "Texte fin",
		},
		{
			name: "markdown structure survives",
			in:   "# Titre\n\n\n\n- point un\n- point deux",
			want: "# Titre\n\n- point un\n- point deux",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Clean(tt.in); got != tt.want {
				t.Errorf("Clean() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClean_Idempotent(t *testing.T) {
	s := Default()
	inputs := []string{
		"",
		"   ",
		"Voir [Source](https://weblex.fr/x) pour détails.",
		"a ( [x](https://dalloz.fr) ) b (( )) c",
		"Selon (https://www.juritravail.com/page) et (legalplace.fr/x), voir https://village-justice.com/y.",
		"## Réponse\n\n**Règle** : 9h ([Legifrance](https://www.legifrance.gouv.fr/loda/id/1)).\n\n\n\nFin",
		"texte\t\tavec   espaces ()",
	}
	for _, in := range inputs {
		once := s.Clean(in)
		twice := s.Clean(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q then %q", in, once, twice)
		}
		if strings.Contains(once, "()") {
			t.Errorf("empty parentheses left in %q", once)
		}
	}
}

func TestClean_RemovalExposesMention(t *testing.T) {
	s := Default()
	tests := []struct {
		in   string
		want string
	}{
		{"] (weblex.fr( ))", "]"},
		{"(weblex.fr( )[]) ", ""},
		{"Voir (dalloz.fr/x( )) ici.", "Voir ici."},
	}
	for _, tt := range tests {
		if got := s.Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClean_IdempotentRandom(t *testing.T) {
	s := Default()
	tokens := []string{
		"(", ")", "[", "]", " ", "  ", "\t", "\n", "\n\n\n", "a", "Règle", "https://",
		"weblex.fr", "www.dalloz.fr/x", "legifrance.gouv.fr", "https://wikipedia.org/wiki/X", ".", "/",
	}
	rng := rand.New(rand.NewPCG(7, 61937))

	for i := 0; i < 50000; i++ {
		var b strings.Builder
		for n := rng.IntN(14); n >= 0; n-- {
			b.WriteString(tokens[rng.IntN(len(tokens))])
		}
		in := b.String()
		once := s.Clean(in)
		if twice := s.Clean(once); twice != once {
			t.Fatalf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNonOfficialLinks(t *testing.T) {
	s := Default()
	text := "[A](https://legifrance.gouv.fr/x) [B](https://blog.example.com/y) " +
		"[B bis](https://blog.example.com/y) [C](/relative) [D](https://www.ecologie.gouv.fr/z)"

	got := s.NonOfficialLinks(text)
	if len(got) != 1 {
		t.Fatalf("expected 1 link, got %+v", got)
	}
	if got[0].Title != "B" || got[0].URL != "https://blog.example.com/y" {
		t.Errorf("unexpected link %+v", got[0])
	}
}

func TestIsOfficial(t *testing.T) {
	s := Default()
	if !s.IsOfficial("https://www.service-public.fr/particuliers") {
		t.Error("service-public.fr should be official")
	}
	if !s.IsOfficial("https://travail-emploi.gouv.fr/") {
		t.Error("gouv.fr subdomains should be official")
	}
	if s.IsOfficial("https://gouv.fr.example.com/") {
		t.Error("suffix lookalike must not be official")
	}
}

func TestNew_EmptyDenyList(t *testing.T) {
	s := New(nil, nil)
	in := "Voir [Source](https://weblex.fr/x)."
	if got := s.Clean(in); got != in {
		t.Errorf("Clean() = %q, want input unchanged", got)
	}
}
