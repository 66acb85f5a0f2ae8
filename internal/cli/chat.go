package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"finsight/internal/agents"
	"finsight/internal/retrieval"
)

func newChatCmd(app *App) *cobra.Command {
	var chatID string

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with the financial assistant",
		Long: `Chat with the financial assistant. With a message argument, asks a
single question and prints the answer. Without arguments, starts an
interactive session.`,
		Example: `  finsight chat "How did AAPL perform this week?"
  finsight chat --chat-id 42e1b9d8 "And compared to MSFT?"
  finsight chat`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			assistant, cleanup, err := app.newAssistant()
			if err != nil {
				return err
			}
			defer cleanup()

			if chatID == "" {
				chatID = uuid.NewString()
			}

			if len(args) > 0 {
				reply, err := assistant.Chat(cmd.Context(), chatID, strings.Join(args, " "))
				if err != nil {
					return fmt.Errorf("chat failed: %w", err)
				}
				if output.IsJSON() {
					return output.JSON(map[string]string{"chat_id": chatID, "response": reply})
				}
				output.Println(reply)
				output.Dim("\nchat id: %s", chatID)
				return nil
			}

			return runInteractiveChat(cmd, output, assistant, chatID)
		},
	}

	cmd.Flags().StringVar(&chatID, "chat-id", "", "continue an existing chat")
	return cmd
}

func runInteractiveChat(cmd *cobra.Command, output *Output, assistant *agents.Assistant, chatID string) error {
	output.Bold("Finsight assistant (chat %s)", chatID[:8])
	output.Dim("Type a question, or 'exit' to quit.")
	output.Println()

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		output.Printf("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		reply, err := assistant.Chat(cmd.Context(), chatID, line)
		if err != nil {
			output.Error("error: %v", err)
			continue
		}
		output.Println(reply)
		output.Println()
	}
	return scanner.Err()
}

// newAssistant wires the full assistant stack: market store, query engine,
// conversation memory, and per-chat document retrieval. The returned cleanup
// closes the underlying stores.
func (a *App) newAssistant() (*agents.Assistant, func(), error) {
	llm, err := a.newLLMClient()
	if err != nil {
		return nil, nil, err
	}

	marketStore, err := a.openMarketStore()
	if err != nil {
		return nil, nil, err
	}

	conversations, err := a.openConversations()
	if err != nil {
		marketStore.Close()
		return nil, nil, err
	}

	index, err := a.openVectorIndex()
	if err != nil {
		marketStore.Close()
		conversations.Close()
		return nil, nil, err
	}

	cleanup := func() {
		marketStore.Close()
		conversations.Close()
		index.Close()
	}

	engine, err := a.newQueryEngine(marketStore)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	documents := func(chatID string) retrieval.Collection {
		return retrieval.NewDocumentCollection(index, chatID)
	}

	assistant := agents.NewAssistant(llm, conversations, engine, documents, agents.AssistantConfig{
		ContextTurns: a.Config.Assistant.ContextTurns,
		RetrievalK:   a.Config.Assistant.RetrievalK,
	}, a.Logger)

	return assistant, cleanup, nil
}

func newChatsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "Manage saved conversations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			conversations, err := app.openConversations()
			if err != nil {
				return err
			}
			defer conversations.Close()

			chats, err := conversations.ListChats(cmd.Context())
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(chats)
			}
			if len(chats) == 0 {
				output.Dim("No saved conversations.")
				return nil
			}

			table := NewTable(output, "ID", "TITLE", "UPDATED")
			for _, chat := range chats {
				table.AddRow(chat.ID, TruncateString(chat.Title, 40), FormatDate(chat.UpdatedAt))
			}
			table.Render()
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <chat-id>",
		Short: "Show a conversation transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			conversations, err := app.openConversations()
			if err != nil {
				return err
			}
			defer conversations.Close()

			info, err := conversations.ChatInfo(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(info)
			}

			output.Bold("%s", info.Title)
			output.Dim("created %s, %d messages", FormatDate(info.CreatedAt), len(info.Messages))
			output.Println()
			for _, msg := range info.Messages {
				if msg.Role == "user" {
					output.Info("[%s] %s", msg.Role, msg.Content)
				} else {
					output.Printf("[%s] %s\n", msg.Role, msg.Content)
				}
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <chat-id>",
		Short: "Delete a conversation and its indexed documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			conversations, err := app.openConversations()
			if err != nil {
				return err
			}
			defer conversations.Close()

			if err := conversations.DeleteChat(cmd.Context(), args[0]); err != nil {
				return err
			}

			if index, err := app.openVectorIndex(); err == nil {
				defer index.Close()
				collection := retrieval.NewDocumentCollection(index, args[0])
				if err := index.DropCollection(cmd.Context(), collection.Name()); err != nil {
					output.Warning("Failed to drop indexed documents: %v", err)
				}
			}

			output.Success("Deleted chat %s", args[0])
			return nil
		},
	})

	return cmd
}
