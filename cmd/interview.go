package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/valikhov/intervue/internal/dialog"
	"github.com/valikhov/intervue/internal/logger"
	"github.com/valikhov/intervue/internal/scenario"
	"github.com/valikhov/intervue/internal/scoring"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var continuePrompt = promptui.Select{
	Label: "Continue?",
	Items: []string{PromptYes, PromptNo},
}

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Run an interactive interview in the terminal",
	Run: func(cmd *cobra.Command, _ []string) {
		interview(cmd)
	},
}

func init() {
	rootCmd.AddCommand(interviewCmd)

	interviewCmd.Flags().StringP("category", "c", "general", "scenario category to interview on")
	interviewCmd.Flags().StringP("role-profile", "r", "generic", "role profile for scoring and replies")
}

// interview drives the question graph turn by turn on the terminal,
// playing the caller role the HTTP clients normally play: it owns the
// score accumulator and applies every scoring update itself.
func interview(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	engine := buildEngine(ctx, config, logger)
	store := scenario.NewStore(config.ScenarioDir, logger)

	category := cmd.Flag("category").Value.String()
	profile := cmd.Flag("role-profile").Value.String()

	scen := store.Load(category)
	node, ok := scen.Start()
	if !ok {
		logger.Fatal("scenario has no start node", zap.String("category", category))
	}

	scores := map[string]float64{}
	var answers []scoring.QAnswer
	sessionID := fmt.Sprintf("session_%d", time.Now().Unix())

	for turn := 1; ; turn++ {
		fmt.Printf("\nQ: %s\n", node.Question)

		answerPrompt := promptui.Prompt{Label: "Answer"}
		transcript, err := answerPrompt.Run()
		if err != nil {
			logger.Fatal("reading answer", zap.Error(err))
		}

		outcome := engine.Reply(ctx, &dialog.ReplyRequest{
			Node:       *node,
			Transcript: transcript,
			Scores:     scores,
			Context: map[string]any{
				"session_id": sessionID,
				"turn_id":    fmt.Sprintf("turn_%d", turn),
			},
			RoleProfile: profile,
		})

		scores[outcome.ScoringUpdate.Block] = outcome.ScoringUpdate.Score
		answers = append(answers, scoring.QAnswer{
			QuestionID: node.ID,
			Block:      node.Category,
			Score:      outcome.ScoringUpdate.Score,
			Weight:     node.Weight,
		})

		fmt.Printf("A: %s\n", outcome.Reply)
		fmt.Printf("   score %.2f, confidence %.2f", outcome.ScoringUpdate.Score, outcome.Confidence)
		if len(outcome.RedFlags) > 0 {
			fmt.Printf(", flags: %s", strings.Join(outcome.RedFlags, ", "))
		}
		fmt.Println()

		if outcome.NextNodeID == "" {
			break
		}
		next, ok := scen.NodeByID(outcome.NextNodeID)
		if !ok {
			break
		}
		node = next

		_, action, err := continuePrompt.Run()
		if err != nil || action == PromptNo {
			break
		}
	}

	printSummary(answers, profile)
}

func printSummary(answers []scoring.QAnswer, profile string) {
	if len(answers) == 0 {
		return
	}

	weights := scenario.ResolveProfile(profile).BlockWeights()
	if len(weights) == 0 {
		weights = map[string]float64{}
		for _, a := range answers {
			weights[a.Block] = 1
		}
	}

	analysis := scoring.AnalyzePerformance(answers, weights)
	pretty, _ := json.MarshalIndent(analysis, "", "  ")
	fmt.Printf("\nInterview summary:\n%s\n", pretty)
}
