// ABOUTME: CLI command that walks the three-step pain entry wizard.
// ABOUTME: Takes answers from flags and prompts on stdin for anything missing.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/painlog/internal/models"
	"github.com/harperreed/painlog/internal/wizard"
)

var (
	recordUserID   int64
	recordPhone    string
	recordBodyPart string
	recordLevel    int
	recordNoInput  bool
	recordAnswers  models.Questionnaire
)

var recordCmd = &cobra.Command{
	Use:     "record",
	Aliases: []string{"rec", "r"},
	Short:   "Record a pain entry",
	Long: `Record where it hurts, how much, and the treatment questionnaire.

The entry is built in three steps: body region, intensity (1-10), then the
questionnaire. Symptoms and duration are required. Anything not given as a
flag is asked for on stdin; use --no-input to fail instead.

If the server cannot be reached you are offered a retry. Retries reuse the
same idempotency key, so the entry is stored at most once.

BODY REGIONS:

  cabeca, pescoco, ombro, costas, quadril, perna, pes

DURATION:

  menos-1-dia, 1-3-dias, 1-semana, 2-4-semanas, 1-3-meses, mais-3-meses

EXAMPLES:

  painlog record --phone 11999887766
  painlog record -p 11999887766 --body-part costas --level 6 \
      --symptoms "dor ao sentar" --duration 1-semana --relief repouso
  painlog record -u 1 --server http://localhost:8080 --token $TOKEN`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		u, err := resolveUser(ctx, recordUserID, recordPhone)
		if err != nil {
			return err
		}

		var submitter wizard.Submitter
		if c, ok := remote(); ok {
			submitter = c.SubmitterFor(u.ID)
		} else {
			submitter = service.SubmitterFor(u.ID)
		}

		p := newPrompter(cmd.InOrStdin(), out, !recordNoInput)
		w := wizard.New(submitter)

		if err := chooseBodyPart(w, p, recordBodyPart); err != nil {
			return err
		}
		if err := chooseIntensity(w, p, recordLevel); err != nil {
			return err
		}
		answers, err := fillQuestionnaire(p, recordAnswers)
		if err != nil {
			return err
		}

		for {
			outcome, err := w.Submit(ctx, answers)
			if err == nil {
				printSaved(out, outcome)
				return nil
			}

			var se *wizard.SubmitError
			if !errors.As(err, &se) {
				return err
			}
			if se.Notice == wizard.NoticeNoConnection && p.enabled {
				color.New(color.FgYellow).Fprintln(out, se.Notice)
				retry, perr := p.confirm("Tentar novamente?")
				if perr != nil {
					return perr
				}
				if retry {
					continue
				}
			}
			color.New(color.FgRed).Fprintln(out, se.Notice)
			return err
		}
	},
}

func chooseBodyPart(w *wizard.Wizard, p *prompter, tag string) error {
	for {
		if tag == "" {
			answer, err := p.choose("Onde dói?", "body-part", models.Vocabulary()["bodyPart"])
			if err != nil {
				return err
			}
			tag = answer
		}
		err := w.ChooseBodyPart(tag)
		if err == nil {
			return nil
		}
		if !p.enabled {
			return err
		}
		fmt.Fprintln(p.out, color.RedString("Região inválida: %s", tag))
		tag = ""
	}
}

func chooseIntensity(w *wizard.Wizard, p *prompter, level int) error {
	for {
		if level < 0 {
			answer, err := p.ask(fmt.Sprintf("Intensidade (%d-%d)", models.MinPainLevel+1, models.MaxPainLevel), "level")
			if err != nil {
				return err
			}
			n, convErr := strconv.Atoi(answer)
			if convErr != nil {
				fmt.Fprintln(p.out, color.RedString("Digite um número"))
				continue
			}
			level = n
		}

		err := w.SetIntensity(level)
		if err == nil {
			err = w.Continue()
		}
		if err == nil {
			return nil
		}
		if !p.enabled {
			return err
		}
		fmt.Fprintln(p.out, color.RedString(err.Error()))
		level = -1
	}
}

// fillQuestionnaire prompts for the required answers the flags left empty.
func fillQuestionnaire(p *prompter, q models.Questionnaire) (*models.Questionnaire, error) {
	if q.Symptoms == "" {
		answer, err := p.ask("Sintomas", "symptoms")
		if err != nil {
			return nil, err
		}
		q.Symptoms = answer
	}
	if q.Duration == "" {
		answer, err := p.choose("Há quanto tempo?", "duration", models.Vocabulary()["duration"])
		if err != nil {
			return nil, err
		}
		q.Duration = answer
	}
	return &q, nil
}

func printSaved(out io.Writer, outcome *wizard.Outcome) {
	e := outcome.Entry
	color.New(color.FgGreen).Fprintf(out, "✓ %s\n", outcome.Notice)
	fmt.Fprintf(out, "  %s %d/10 %s\n",
		color.New(color.Bold).Sprint(e.BodyPart.Label()),
		e.PainLevel,
		color.New(color.Faint).Sprintf("(%s, ID %d)", models.PainDescription(e.PainLevel), e.ID))
}

// prompter reads answers line by line. When disabled every question fails
// with a pointer to the flag that would have answered it.
type prompter struct {
	in      *bufio.Reader
	out     io.Writer
	enabled bool
}

func newPrompter(in io.Reader, out io.Writer, enabled bool) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out, enabled: enabled}
}

func (p *prompter) ask(question, flag string) (string, error) {
	if !p.enabled {
		return "", fmt.Errorf("--%s is required with --no-input", flag)
	}
	for {
		fmt.Fprintf(p.out, "%s: ", question)
		line, err := p.in.ReadString('\n')
		answer := strings.TrimSpace(line)
		if answer != "" {
			return answer, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", flag, err)
		}
	}
}

// choose lists terms by number and accepts either the number or the tag.
func (p *prompter) choose(question, flag string, terms []models.Term) (string, error) {
	if p.enabled {
		for i, t := range terms {
			fmt.Fprintf(p.out, "  %d) %s %s\n", i+1, t.Label, color.New(color.Faint).Sprintf("[%s]", t.Value))
		}
	}
	answer, err := p.ask(question, flag)
	if err != nil {
		return "", err
	}
	if n, convErr := strconv.Atoi(answer); convErr == nil && n >= 1 && n <= len(terms) {
		return terms[n-1].Value, nil
	}
	return answer, nil
}

func (p *prompter) confirm(question string) (bool, error) {
	fmt.Fprintf(p.out, "%s [S/n] ", question)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "s", "sim", "y", "yes":
		return true, nil
	}
	return false, nil
}

func init() {
	f := recordCmd.Flags()
	addUserFlags(recordCmd, &recordUserID, &recordPhone)
	f.StringVarP(&recordBodyPart, "body-part", "b", "", "body region tag")
	f.IntVarP(&recordLevel, "level", "l", -1, "pain intensity, 1-10")
	f.BoolVar(&recordNoInput, "no-input", false, "never prompt; fail when an answer is missing")

	f.StringVar(&recordAnswers.Symptoms, "symptoms", "", "symptoms description")
	f.StringVar(&recordAnswers.Duration, "duration", "", "how long it has hurt")
	f.StringVar(&recordAnswers.Triggers, "triggers", "", "what set it off")
	f.StringVar(&recordAnswers.PreviousTreatments, "treatments", "", "previous treatments")
	f.StringVar(&recordAnswers.Medications, "medications", "", "medications taken")
	f.StringVar(&recordAnswers.Notes, "notes", "", "free-form notes")
	f.StringVar(&recordAnswers.PainComparison, "comparison", "", "since last entry: melhorou, igual, piorou")
	f.StringVar(&recordAnswers.PainPattern, "pattern", "", "when it hurts")
	f.StringVar(&recordAnswers.PainType, "type", "", "kind of pain")
	f.StringVar(&recordAnswers.PainRelief, "relief", "", "what relieved it: repouso, movimento, medicacao, gelo-calor, fisioterapia, nada, outro")
	f.StringVar(&recordAnswers.PainWorse, "worse", "", "what makes it worse")
	f.StringVar(&recordAnswers.Interference, "interference", "", "how it affects daily activities")
	f.StringVar(&recordAnswers.SleepQuality, "sleep", "", "sleep: dormi-bem-sem-dor, incomodou-pouco, acordei-dor, dormi-mal-dor")
	f.StringVar(&recordAnswers.ExercisesDone, "exercises", "", "exercises done")
	f.StringVar(&recordAnswers.ExercisesEffect, "exercises-effect", "", "effect of the exercises")

	rootCmd.AddCommand(recordCmd)
}
