package validate

// DefaultBloomVerbs is the accepted set of leading objective verbs drawn from
// the pedagogical taxonomy the content team works with. Rule sets take the
// list as configuration; this is only the default.
var DefaultBloomVerbs = []string{
	"recordar",
	"comprender",
	"aplicar",
	"analizar",
	"evaluar",
	"crear",
	"identificar",
	"describir",
	"explicar",
	"implementar",
	"comparar",
	"disenar",
	"diseñar",
	"construir",
	"resolver",
}
