// ABOUTME: Closed vocabularies for body parts and questionnaire answers.
// ABOUTME: Each tag maps to a pt-BR label; unknown tags are rejected at the boundary.
package models

// BodyPart identifies the anatomical region a pain entry refers to.
type BodyPart string

const (
	BodyPartHead     BodyPart = "cabeca"
	BodyPartNeck     BodyPart = "pescoco"
	BodyPartShoulder BodyPart = "ombro"
	BodyPartBack     BodyPart = "costas"
	BodyPartHip      BodyPart = "quadril"
	BodyPartLeg      BodyPart = "perna"
	BodyPartFeet     BodyPart = "pes"
)

// AllBodyParts lists body parts in display order (head to feet).
var AllBodyParts = []BodyPart{
	BodyPartHead, BodyPartNeck, BodyPartShoulder, BodyPartBack,
	BodyPartHip, BodyPartLeg, BodyPartFeet,
}

// BodyPartLabels maps body parts to their display names.
var BodyPartLabels = map[BodyPart]string{
	BodyPartHead:     "Cabeça",
	BodyPartNeck:     "Pescoço",
	BodyPartShoulder: "Ombro",
	BodyPartBack:     "Costas",
	BodyPartHip:      "Quadril",
	BodyPartLeg:      "Perna",
	BodyPartFeet:     "Pés",
}

// IsValidBodyPart checks if a string is a known body part tag.
func IsValidBodyPart(s string) bool {
	return contains(AllBodyParts, BodyPart(s))
}

// Label returns the display name, or the raw tag if it is not in the vocabulary.
func (b BodyPart) Label() string {
	return labelOf(BodyPartLabels, b)
}

// Duration is the "how long have you felt this pain" answer.
type Duration string

const (
	DurationUnderADay    Duration = "menos-1-dia"
	DurationOneToThree   Duration = "1-3-dias"
	DurationAboutAWeek   Duration = "1-semana"
	DurationTwoToFourWks Duration = "2-4-semanas"
	DurationOneToThreeMo Duration = "1-3-meses"
	DurationOverThreeMo  Duration = "mais-3-meses"
)

// AllDurations lists duration buckets from shortest to longest.
var AllDurations = []Duration{
	DurationUnderADay, DurationOneToThree, DurationAboutAWeek,
	DurationTwoToFourWks, DurationOneToThreeMo, DurationOverThreeMo,
}

// DurationLabels maps duration buckets to display names.
var DurationLabels = map[Duration]string{
	DurationUnderADay:    "Menos de 1 dia",
	DurationOneToThree:   "1-3 Dias",
	DurationAboutAWeek:   "Cerca de 1 Semana",
	DurationTwoToFourWks: "2-4 Semanas",
	DurationOneToThreeMo: "1-3 Meses",
	DurationOverThreeMo:  "Mais de 3 Meses",
}

// IsValidDuration checks if a string is a known duration bucket.
func IsValidDuration(s string) bool {
	return contains(AllDurations, Duration(s))
}

// Label returns the display name of the bucket.
func (d Duration) Label() string {
	return labelOf(DurationLabels, d)
}

// SleepQuality describes how the previous night went.
type SleepQuality string

const (
	SleepWell         SleepQuality = "dormi-bem-sem-dor"
	SleepSlightlyHurt SleepQuality = "incomodou-pouco"
	SleepWokeInPain   SleepQuality = "acordei-dor"
	SleepPoorly       SleepQuality = "dormi-mal-dor"
)

// AllSleepQualities lists sleep categories from best to worst.
var AllSleepQualities = []SleepQuality{
	SleepWell, SleepSlightlyHurt, SleepWokeInPain, SleepPoorly,
}

// SleepQualityLabels maps sleep categories to display names.
var SleepQualityLabels = map[SleepQuality]string{
	SleepWell:         "Dormi Bem",
	SleepSlightlyHurt: "Incomodou Pouco",
	SleepWokeInPain:   "Acordei com Dor",
	SleepPoorly:       "Dormi Mal",
}

// SleepQualityRank orders sleep categories; higher is better sleep.
var SleepQualityRank = map[SleepQuality]int{
	SleepWell:         4,
	SleepSlightlyHurt: 3,
	SleepWokeInPain:   2,
	SleepPoorly:       1,
}

// IsValidSleepQuality checks if a string is a known sleep category.
func IsValidSleepQuality(s string) bool {
	return contains(AllSleepQualities, SleepQuality(s))
}

// Label returns the display name of the category.
func (s SleepQuality) Label() string {
	return labelOf(SleepQualityLabels, s)
}

// Rank returns the severity rank, 0 for unknown categories.
func (s SleepQuality) Rank() int {
	return SleepQualityRank[s]
}

// PainRelief is the "what relieved the pain" answer.
type PainRelief string

const (
	ReliefRest       PainRelief = "repouso"
	ReliefMovement   PainRelief = "movimento"
	ReliefMedication PainRelief = "medicacao"
	ReliefIceHeat    PainRelief = "gelo-calor"
	ReliefPhysio     PainRelief = "fisioterapia"
	ReliefNothing    PainRelief = "nada"
	ReliefOther      PainRelief = "outro"
)

// AllPainReliefs lists relief categories in questionnaire order.
var AllPainReliefs = []PainRelief{
	ReliefRest, ReliefMovement, ReliefMedication, ReliefIceHeat,
	ReliefPhysio, ReliefNothing, ReliefOther,
}

// PainReliefLabels maps relief categories to display names.
var PainReliefLabels = map[PainRelief]string{
	ReliefRest:       "Repouso",
	ReliefMovement:   "Movimento",
	ReliefMedication: "Medicação",
	ReliefIceHeat:    "Gelo/Calor",
	ReliefPhysio:     "Fisioterapia",
	ReliefNothing:    "Nada ajudou",
	ReliefOther:      "Outro",
}

// IsValidPainRelief checks if a string is a known relief category.
func IsValidPainRelief(s string) bool {
	return contains(AllPainReliefs, PainRelief(s))
}

// Label returns the display name of the category.
func (r PainRelief) Label() string {
	return labelOf(PainReliefLabels, r)
}

// PainComparison compares today's pain to the previous day.
type PainComparison string

const (
	ComparisonImproved PainComparison = "melhorou"
	ComparisonSame     PainComparison = "igual"
	ComparisonWorse    PainComparison = "piorou"
)

// AllPainComparisons lists comparison answers.
var AllPainComparisons = []PainComparison{
	ComparisonImproved, ComparisonSame, ComparisonWorse,
}

// PainComparisonLabels maps comparison answers to display names.
var PainComparisonLabels = map[PainComparison]string{
	ComparisonImproved: "Melhorou",
	ComparisonSame:     "Igual",
	ComparisonWorse:    "Piorou",
}

// IsValidPainComparison checks if a string is a known comparison answer.
func IsValidPainComparison(s string) bool {
	return contains(AllPainComparisons, PainComparison(s))
}

// Label returns the display name of the answer.
func (c PainComparison) Label() string {
	return labelOf(PainComparisonLabels, c)
}

// Term is one vocabulary value with its display label.
type Term struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Vocabulary returns every closed vocabulary keyed by questionnaire field name.
func Vocabulary() map[string][]Term {
	return map[string][]Term{
		"bodyPart":       terms(AllBodyParts, BodyPartLabels),
		"duration":       terms(AllDurations, DurationLabels),
		"sleepQuality":   terms(AllSleepQualities, SleepQualityLabels),
		"painRelief":     terms(AllPainReliefs, PainReliefLabels),
		"painComparison": terms(AllPainComparisons, PainComparisonLabels),
	}
}

func terms[T ~string](values []T, labels map[T]string) []Term {
	out := make([]Term, 0, len(values))
	for _, v := range values {
		out = append(out, Term{Value: string(v), Label: labels[v]})
	}
	return out
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func labelOf[T ~string](labels map[T]string, v T) string {
	if label, ok := labels[v]; ok {
		return label
	}
	return string(v)
}
