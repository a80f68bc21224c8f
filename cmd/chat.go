package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"flowbot/pkg/agent"
	"flowbot/pkg/channel"
	"flowbot/pkg/intent"
	"flowbot/pkg/model"
)

var chatLinkBase string

var (
	botStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	hintStyle   = lipgloss.NewStyle().Faint(true)
	promptStyle = lipgloss.NewStyle().Bold(true)
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start a local chat session against an in-memory store",
	Long:  "Runs the intent matcher and dispatcher locally with a throwaway in-memory store, so replies can be exercised without any channel credentials.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		ctx := context.Background()

		store := model.NewMemStore()
		user, err := store.CreateUser(ctx, &model.User{Name: "Local User", Timezone: "UTC"})
		if err != nil {
			fmt.Printf("failed to create session user: %v\n", err)
			return
		}

		matcher, err := intent.DefaultMatcher()
		if err != nil {
			fmt.Printf("failed to compile intent rules: %v\n", err)
			return
		}

		dispatcher, err := agent.NewDispatcher(agent.Options{
			Store:       store,
			LinkBaseURL: chatLinkBase,
		})
		if err != nil {
			fmt.Printf("failed to initialize dispatcher: %v\n", err)
			return
		}

		engine := &channel.Engine{Matcher: matcher, Dispatcher: dispatcher}

		fmt.Println(botStyle.Render("Flow") + " local session. Try 'help', or Ctrl-D to quit.")
		runChatLoop(ctx, engine, user)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatLinkBase, "link-base", "https://flowdash.co", "site base URL used in link prompts")
}

func runChatLoop(ctx context.Context, engine *channel.Engine, user *model.User) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("> "))
		if !scanner.Scan() {
			fmt.Println()
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		uc := agent.UserContext{
			User:      user,
			Channel:   "console",
			LocalTime: user.LocalTime(time.Now()),
		}

		result, err := respondToLine(ctx, engine, line, uc)
		if err != nil {
			fmt.Println(hintStyle.Render(fmt.Sprintf("(error: %v)", err)))
			continue
		}

		printResult(result)
	}
}

// respondToLine treats a line that looks like an action identifier as a
// postback, which makes quick-reply payloads usable by typing them.
func respondToLine(ctx context.Context, engine *channel.Engine, line string, uc agent.UserContext) (agent.ActionResult, error) {
	if strings.HasPrefix(line, "input.") || line == string(agent.ActionGetStarted) {
		return engine.RespondToPostback(ctx, agent.Action(line), uc)
	}

	return engine.RespondToText(ctx, line, uc)
}

func printResult(result agent.ActionResult) {
	if result.Empty() {
		fmt.Println(hintStyle.Render("(silence)"))
		return
	}

	if result.Speech != "" {
		fmt.Println(botStyle.Render(result.Speech))
	}
	if result.LinkPrompt != nil {
		fmt.Println(botStyle.Render(result.LinkPrompt.Text))
		fmt.Println(hintStyle.Render(result.LinkPrompt.URL))
	}
	for _, reply := range result.QuickReplies {
		fmt.Println(hintStyle.Render(fmt.Sprintf("[%s -> %s]", reply.Title, reply.Payload)))
	}
}
