package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/scalperguard/cli/pkg/output"
	"github.com/telhawk-systems/scalperguard/common/messaging"
	natsclient "github.com/telhawk-systems/scalperguard/common/messaging/nats"
	"github.com/telhawk-systems/scalperguard/scoring/pkg/scoring"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream block decisions from NATS",
	Long: `Subscribe to the decisions the scoring service publishes and print them
as they arrive. With --group the subscription joins the enforcement worker
queue group, so each decision is delivered to one member only.

Examples:
  sguard watch --nats-url nats://localhost:4222
  sguard watch --decision hard_block --output json`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("nats-url", natsclient.DefaultConfig().URL, "NATS server URL")
	watchCmd.Flags().String("decision", "", "only show this decision (hard_block or soft_block)")
	watchCmd.Flags().Bool("group", false, "join the "+messaging.QueueEnforcementWorkers+" queue group")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("output")
	url, _ := cmd.Flags().GetString("nats-url")
	decision, _ := cmd.Flags().GetString("decision")
	group, _ := cmd.Flags().GetBool("group")

	subject, err := decisionSubject(decision)
	if err != nil {
		return err
	}
	queue := ""
	if group {
		queue = messaging.QueueEnforcementWorkers
	}

	ncfg := natsclient.DefaultConfig()
	ncfg.URL = url
	ncfg.Name = "sguard-watch"
	client, err := natsclient.NewClient(ncfg)
	if err != nil {
		return err
	}
	defer client.Close()

	sub, err := subscribeDecisions(client, subject, queue, func(ev scoring.DecisionEvent) {
		printDecision(ev, format)
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	output.Info("Watching %s on %s (Ctrl-C to stop)", subject, url)
	<-ctx.Done()
	return nil
}

func decisionSubject(decision string) (string, error) {
	if decision == "" {
		return messaging.SubjectScoringDecisionsAll, nil
	}
	d := scoring.Decision(strings.ToUpper(decision))
	if !d.Blocking() {
		return "", fmt.Errorf("unknown decision %q: want hard_block or soft_block", decision)
	}
	return messaging.DecisionSubject(string(d)), nil
}

func subscribeDecisions(sub messaging.Subscriber, subject, queue string, handle func(scoring.DecisionEvent)) (messaging.Subscription, error) {
	handler := func(_ context.Context, msg *messaging.Message) error {
		var ev scoring.DecisionEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return fmt.Errorf("decode decision on %s: %w", msg.Subject, err)
		}
		handle(ev)
		return nil
	}
	if queue != "" {
		return sub.QueueSubscribe(subject, queue, handler)
	}
	return sub.Subscribe(subject, handler)
}

func printDecision(ev scoring.DecisionEvent, format string) {
	if format == output.FormatJSON {
		_ = output.JSON(ev)
		return
	}
	line := fmt.Sprintf("%s  %-10s  risk=%5.1f  %s", ev.ScoredAt.Format("15:04:05"), ev.Decision, ev.Risk, ev.Wallet)
	if c := decisionColor(ev.Decision); c != nil {
		c.Fprintln(output.Stdout, line)
		return
	}
	fmt.Fprintln(output.Stdout, line)
}
