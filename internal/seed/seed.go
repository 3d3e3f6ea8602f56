// ABOUTME: Demo data generator: one known user and a month of random entries.
// ABOUTME: Deterministic for a given seed so demos and tests are reproducible.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/harperreed/painlog/internal/models"
	"github.com/harperreed/painlog/internal/storage"
)

// Demo user credentials.
const (
	DemoName  = "João Silva"
	DemoPhone = "11999887766"
)

// Options controls how much data is generated.
type Options struct {
	Entries int
	Days    int
	// FormRatio is the share of entries that get a questionnaire.
	FormRatio float64
	Seed      int64
	Now       time.Time
}

// DefaultOptions mirrors the stock demo: 15 entries over 30 days, ~70% with forms.
func DefaultOptions() Options {
	return Options{Entries: 15, Days: 30, FormRatio: 0.7, Seed: 1, Now: time.Now().UTC()}
}

// Result reports what Run wrote.
type Result struct {
	User        *models.User
	UserCreated bool
	Entries     int
	Forms       int
}

var (
	symptoms = []string{
		"Dor latejante que piora com movimento",
		"Sensação de queimação constante",
		"Dor em pontada que vem e vai",
		"Rigidez muscular pela manhã",
		"Dor que irradia para outras regiões",
		"Formigamento e dormência",
		"Dor que piora à noite",
		"Sensação de peso e cansaço",
	}
	triggers = []string{
		"Movimento brusco durante exercício",
		"Postura inadequada no trabalho",
		"Carregar peso excessivo",
		"Dormir em posição ruim",
		"Estresse e tensão",
		"Mudança no clima",
		"Atividade física intensa",
		"Ficar muito tempo na mesma posição",
	}
	treatments = []string{
		"Compressas quentes",
		"Massagem local",
		"Repouso absoluto",
		"Alongamentos leves",
		"Fisioterapia",
		"Acupuntura",
		"Exercícios de fortalecimento",
		"Relaxamento muscular",
	}
	medications = []string{
		"Ibuprofeno 600mg",
		"Paracetamol 750mg",
		"Diclofenaco sódico",
		"Relaxante muscular",
		"Anti-inflamatório tópico",
		"Dipirona 500mg",
		"Naproxeno",
		"Pomada analgésica",
	}
)

// Generate builds entries for userID without storing them.
func Generate(userID int64, opts Options) []*models.PainEntry {
	rng := rand.New(rand.NewSource(opts.Seed))
	days := opts.Days
	if days <= 0 {
		days = 1
	}

	entries := make([]*models.PainEntry, 0, opts.Entries)
	for i := 0; i < opts.Entries; i++ {
		bp := models.AllBodyParts[rng.Intn(len(models.AllBodyParts))]
		level := rng.Intn(models.MaxPainLevel) + 1
		at := opts.Now.AddDate(0, 0, -rng.Intn(days)).Add(-time.Duration(rng.Intn(24*60)) * time.Minute)

		e := models.NewPainEntry(userID, bp, level).WithCreatedAt(at)
		if rng.Float64() < opts.FormRatio {
			e.WithForm(randomForm(rng))
		}
		entries = append(entries, e)
	}
	return entries
}

func randomForm(rng *rand.Rand) json.RawMessage {
	pick := func(values []string) string { return values[rng.Intn(len(values))] }

	q := models.Questionnaire{
		Symptoms:           pick(symptoms),
		Duration:           string(models.AllDurations[rng.Intn(len(models.AllDurations))]),
		Triggers:           pick(triggers),
		PreviousTreatments: pick(treatments),
		SleepQuality:       string(models.AllSleepQualities[rng.Intn(len(models.AllSleepQualities))]),
		PainComparison:     string(models.AllPainComparisons[rng.Intn(len(models.AllPainComparisons))]),
		PainRelief:         string(models.AllPainReliefs[rng.Intn(len(models.AllPainReliefs))]),
	}
	if rng.Float64() > 0.5 {
		q.Medications = pick(medications)
	}
	if rng.Float64() > 0.6 {
		q.Notes = "Observações adicionais sobre o tratamento e evolução da dor."
	}

	raw, _ := q.Marshal()
	return raw
}

// Run ensures the demo user exists and stores freshly generated entries.
func Run(ctx context.Context, repo storage.Repository, opts Options) (*Result, error) {
	res := &Result{}

	u, err := repo.GetUserByPhone(ctx, DemoPhone)
	switch {
	case err == nil:
		res.User = u
	case errors.Is(err, storage.ErrNotFound):
		u = models.NewUser(DemoName, DemoPhone)
		if err := repo.CreateUser(ctx, u); err != nil {
			return nil, fmt.Errorf("create demo user: %w", err)
		}
		res.User = u
		res.UserCreated = true
	default:
		return nil, fmt.Errorf("find demo user: %w", err)
	}

	for _, e := range Generate(res.User.ID, opts) {
		if err := repo.CreatePainEntry(ctx, e); err != nil {
			return nil, fmt.Errorf("create demo entry: %w", err)
		}
		res.Entries++
		if e.TreatmentForm != nil {
			res.Forms++
		}
	}
	return res, nil
}
