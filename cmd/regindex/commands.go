package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/regassist/internal/config"
	logpkg "github.com/kailas-cloud/regassist/internal/logger"
	"github.com/kailas-cloud/regassist/internal/repository/index"
	openaiTransport "github.com/kailas-cloud/regassist/internal/transport/openai"
	"github.com/kailas-cloud/regassist/internal/transport/pdfdoc"
	"github.com/kailas-cloud/regassist/internal/transport/webpage"
	embeddinguc "github.com/kailas-cloud/regassist/internal/usecase/embedding"
	"github.com/kailas-cloud/regassist/internal/usecase/indexer"
)

var errNoEmbeddingKey = errors.New("embedding.api_key is empty")

// newIndexer builds the index service from config. Tests replace it.
var newIndexer = func(needEmbedder bool) (*indexer.Service, string, error) {
	cfg, err := config.Load(envName)
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}
	if needEmbedder && cfg.Embedding.APIKey == "" {
		return nil, "", errNoEmbeddingKey
	}
	logger, err := logpkg.NewLogger(envName, cfg.Logging.Level)
	if err != nil {
		return nil, "", fmt.Errorf("create logger: %w", err)
	}

	path := cfg.RAG.IndexPath
	if indexPath != "" {
		path = indexPath
	}

	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	embedder := embeddinguc.NewInstrumentedEmbedder(base, base.Provider(), base.Model(), logger)

	return indexer.New(index.NewFileStore(path), embedder, cfg.Embedding.Model, logger), path, nil
}

// fetchPage is the web page reader used by add --url.
var fetchPage = func(ctx context.Context, url string) (string, error) {
	return webpage.New(nil).Text(ctx, url)
}

// readPDF is the PDF text extractor used by add --pdf.
var readPDF = pdfdoc.ReadFile

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runAdd(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)

	text, err := readDocument(ctx)
	if err != nil {
		return err
	}

	svc, path, err := newIndexer(true)
	if err != nil {
		return err
	}

	res, err := svc.Add(ctx, indexer.AddInput{
		SourceID: addID,
		Name:     addName,
		Text:     text,
		Replace:  addReplace,
	})
	if err != nil {
		return fmt.Errorf("add %s: %w", addName, err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Indexed %q as %s: %d chunks, %d tokens -> %s\n",
		addName, res.SourceID, len(res.ChunkIDs), res.Tokens, path)
	return nil
}

func readDocument(ctx context.Context) (string, error) {
	if addPDF != "" {
		text, err := readPDF(addPDF)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", addPDF, err)
		}
		return text, nil
	}
	if addURL != "" {
		text, err := fetchPage(ctx, addURL)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", addURL, err)
		}
		return text, nil
	}
	data, err := os.ReadFile(filepath.Clean(addFile))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", addFile, err)
	}
	return string(data), nil
}

func runRemove(cmd *cobra.Command, _ []string) error {
	svc, path, err := newIndexer(false)
	if err != nil {
		return err
	}
	n, err := svc.Remove(removeID)
	if err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d chunks of %s from %s\n", n, removeID, path)
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	svc, path, err := newIndexer(false)
	if err != nil {
		return err
	}
	model, sources, err := svc.List()
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "%s (model %s, %d sources)\n", path, model, len(sources))
	if len(sources) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSOURCE\tCHUNKS")
	for _, s := range sources {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\n", s.ID, s.Name, s.Chunks)
	}
	return tw.Flush()
}
