package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/regassist/internal/config"
	"github.com/kailas-cloud/regassist/internal/version"
)

var (
	envName   string
	indexPath string

	addName    string
	addFile    string
	addURL     string
	addPDF     string
	addID      string
	addReplace bool

	removeID string

	rootCmd = &cobra.Command{
		Use:   "regindex",
		Short: "Maintain the product document index used for retrieval",
		Long: `regindex chunks product documents, embeds the chunks with the configured
embedding model and stores them in the index file read by the API server.`,
		Version:      version.String(),
		SilenceUsage: true,
	}
	addCmd = &cobra.Command{
		Use:   "add",
		Short: "Chunk, embed and append a document to the index",
		Args:  cobra.NoArgs,
		RunE:  runAdd,
	}
	removeCmd = &cobra.Command{
		Use:   "remove",
		Short: "Delete every chunk of a source",
		Args:  cobra.NoArgs,
		RunE:  runRemove,
	}
	listCmd = &cobra.Command{
		Use:     "list",
		Short:   "Print the indexed sources and their chunk counts",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE:    runList,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envName, "env", config.GetEnv(), "config environment (config/<env>.yaml)")
	rootCmd.PersistentFlags().StringVar(&indexPath, "index", "", "index file (default: rag.index_path from config)")

	addCmd.Flags().StringVar(&addName, "source", "", "source name shown to the model")
	addCmd.Flags().StringVar(&addFile, "file", "", "plain text file to index")
	addCmd.Flags().StringVar(&addURL, "url", "", "web page to index")
	addCmd.Flags().StringVar(&addPDF, "pdf", "", "PDF document to index (text layer only)")
	addCmd.Flags().StringVar(&addID, "id", "", "source ID (generated when empty)")
	addCmd.Flags().BoolVar(&addReplace, "replace", false, "replace the chunks of an existing source ID")
	_ = addCmd.MarkFlagRequired("source")
	addCmd.MarkFlagsOneRequired("file", "url", "pdf")
	addCmd.MarkFlagsMutuallyExclusive("file", "url", "pdf")

	removeCmd.Flags().StringVar(&removeID, "id", "", "source ID to remove")
	_ = removeCmd.MarkFlagRequired("id")

	rootCmd.AddCommand(addCmd, removeCmd, listCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
