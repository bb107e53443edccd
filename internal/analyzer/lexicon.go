package analyzer

// Lexicons are keyed by folded form: lowercase, no diacritics. Suffix rules
// run on the accented lowercase form because accents carry tense in Spanish
// ("salto" vs "saltó").

type Tense string

const (
	TensePresent   Tense = "present"
	TensePreterite Tense = "preterite"
	TenseImperfect Tense = "imperfect"
	TenseFuture    Tense = "future"
)

type ConnectorType string

const (
	ConnectorNone          ConnectorType = ""
	ConnectorCoordinating  ConnectorType = "coordinating"
	ConnectorSubordinating ConnectorType = "subordinating"
)

var articles = setOf(
	"el", "la", "los", "las", "un", "una", "unos", "unas",
)

var personalPronouns = setOf(
	"yo", "tu", "el", "ella", "ello", "usted",
	"nosotros", "nosotras", "vosotros", "vosotras",
	"ellos", "ellas", "ustedes",
)

var coordinatingConnectors = setOf(
	"y", "e", "o", "u", "ni", "pero", "sino", "entonces", "luego",
)

var subordinatingConnectors = setOf(
	"que", "porque", "cuando", "si", "aunque", "mientras", "donde",
	"como", "pues", "quien", "quienes", "cuyo", "cuya",
)

var interrogatives = setOf(
	"qué", "cómo", "dónde", "adónde", "cuándo", "quién", "quiénes",
	"cuál", "cuáles", "cuánto", "cuánta", "cuántos", "cuántas",
)

// trivialWords never make a good blank: articles and one-letter conjunctions.
var trivialWords = setOf(
	"el", "la", "los", "las", "un", "una", "unos", "unas",
	"y", "e", "o", "u", "ni",
)

var prepositions = setOf(
	"a", "al", "ante", "bajo", "con", "contra", "de", "del", "desde",
	"en", "entre", "hacia", "hasta", "para", "por", "segun", "sin",
	"sobre", "tras",
)

var otherStopWords = setOf(
	"no", "se", "su", "sus", "mi", "mis", "tu", "tus", "le", "les", "lo",
	"me", "te", "nos", "os", "muy", "mas", "ya", "esto", "eso", "este",
	"esta", "ese", "esa", "estos", "esas", "esos", "aquel", "aquella",
	"alli", "aqui", "asi", "cual", "que", "quien", "todo", "toda",
	"todos", "todas", "otro", "otra", "otros", "otras", "hay", "es",
	"son", "fue", "era",
)

// commonVerbs maps frequent conjugated forms to their tense. These are the
// "basic verbs" early levels practise.
var commonVerbs = map[string]Tense{
	// ser / estar / haber / tener / ir
	"es": TensePresent, "son": TensePresent, "soy": TensePresent, "eres": TensePresent,
	"somos": TensePresent, "esta": TensePresent, "estan": TensePresent, "estoy": TensePresent,
	"hay": TensePresent, "tiene": TensePresent, "tienen": TensePresent, "tengo": TensePresent,
	"va": TensePresent, "van": TensePresent, "voy": TensePresent, "vamos": TensePresent,
	"fue": TensePreterite, "fueron": TensePreterite, "fui": TensePreterite,
	"estuvo": TensePreterite, "tuvo": TensePreterite, "tuvieron": TensePreterite,
	"hubo": TensePreterite, "estuvieron": TensePreterite,
	"era": TenseImperfect, "eran": TenseImperfect, "estaba": TenseImperfect,
	"estaban": TenseImperfect, "habia": TenseImperfect, "tenia": TenseImperfect,
	"tenian": TenseImperfect, "iba": TenseImperfect, "iban": TenseImperfect,
	"sera": TenseFuture, "seran": TenseFuture, "estara": TenseFuture,
	"tendra": TenseFuture, "ira": TenseFuture, "iran": TenseFuture, "habra": TenseFuture,

	// everyday actions
	"come": TensePresent, "comen": TensePresent, "bebe": TensePresent, "beben": TensePresent,
	"vive": TensePresent, "viven": TensePresent, "juega": TensePresent, "juegan": TensePresent,
	"corre": TensePresent, "corren": TensePresent, "mira": TensePresent, "miran": TensePresent,
	"ve": TensePresent, "ven": TensePresent, "quiere": TensePresent, "quieren": TensePresent,
	"puede": TensePresent, "pueden": TensePresent, "dice": TensePresent, "dicen": TensePresent,
	"sale": TensePresent, "salen": TensePresent, "salta": TensePresent, "saltan": TensePresent,
	"duerme": TensePresent, "duermen": TensePresent, "canta": TensePresent, "cantan": TensePresent,
	"lee": TensePresent, "leen": TensePresent, "escribe": TensePresent, "escriben": TensePresent,
	"camina": TensePresent, "caminan": TensePresent, "busca": TensePresent, "buscan": TensePresent,
	"encuentra": TensePresent, "llega": TensePresent, "llegan": TensePresent, "abre": TensePresent,
	"ayuda": TensePresent, "ayudan": TensePresent, "gusta": TensePresent, "gustan": TensePresent,
	"necesita": TensePresent, "vuela": TensePresent, "vuelan": TensePresent, "rie": TensePresent,
	"llora": TensePresent, "da": TensePresent, "dan": TensePresent, "pone": TensePresent,
	"trae": TensePresent, "sabe": TensePresent, "hace": TensePresent, "hacen": TensePresent,
	"pinta": TensePresent, "toca": TensePresent, "lleva": TensePresent,
	"hizo": TensePreterite, "hicieron": TensePreterite, "dijo": TensePreterite,
	"dijeron": TensePreterite, "vio": TensePreterite, "vieron": TensePreterite,
	"dio": TensePreterite, "dieron": TensePreterite, "puso": TensePreterite,
	"pudo": TensePreterite, "quiso": TensePreterite, "vino": TensePreterite,
	"vinieron": TensePreterite, "supo": TensePreterite, "trajo": TensePreterite,
	"veia": TenseImperfect, "queria": TenseImperfect, "podia": TenseImperfect,
	"decia": TenseImperfect, "vivia": TenseImperfect, "jugaba": TenseImperfect,
	"hara": TenseFuture, "podra": TenseFuture, "dira": TenseFuture, "vendra": TenseFuture,
}

type suffixRule struct {
	suffix string
	tense  Tense
}

// suffixRules are tried longest first. A match also needs at least
// minStem letters before the suffix.
var suffixRules = []suffixRule{
	{"ábamos", TenseImperfect},
	{"íamos", TenseImperfect},
	{"aremos", TenseFuture},
	{"eremos", TenseFuture},
	{"iremos", TenseFuture},
	{"ieron", TensePreterite},
	{"aban", TenseImperfect},
	{"abas", TenseImperfect},
	{"aron", TensePreterite},
	{"arán", TenseFuture},
	{"erán", TenseFuture},
	{"irán", TenseFuture},
	{"aste", TensePreterite},
	{"iste", TensePreterite},
	{"amos", TensePresent},
	{"emos", TensePresent},
	{"imos", TensePresent},
	{"aba", TenseImperfect},
	{"ían", TenseImperfect},
	{"ías", TenseImperfect},
	{"ará", TenseFuture},
	{"erá", TenseFuture},
	{"irá", TenseFuture},
	{"aré", TenseFuture},
	{"eré", TenseFuture},
	{"iré", TenseFuture},
	{"ió", TensePreterite},
	{"ía", TenseImperfect},
	{"an", TensePresent},
	{"en", TensePresent},
	{"ó", TensePreterite},
}

const minStem = 2

// presentPluralMinLen keeps short nouns like "pan" or "tren" out of the
// bare -an/-en rule.
const presentPluralMinLen = 5

// nounExceptions end like verbs but are not.
var nounExceptions = setOf(
	"joven", "jovenes", "imagen", "origen", "examen", "orden", "crimen",
	"virgen", "margen", "volumen", "resumen", "tambien", "alguien",
	"dia", "tia", "via", "guia", "alegria", "energia", "fantasia",
	"policia", "panaderia", "poesia", "compania",
)

func setOf(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
