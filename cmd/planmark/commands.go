package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"planmark/api/internal/annotation"
	"planmark/api/internal/blockdiff"
	"planmark/api/internal/blocks"
	"planmark/api/internal/feedback"
	"planmark/api/internal/markers"
	"planmark/api/internal/share"
)

// newRootCmd wires every subcommand. A file argument of "-" reads stdin.
func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "planmark",
		Short:         "Review tooling for markdown plans",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)

	root.AddCommand(
		newParseCmd(),
		newFeedbackCmd(),
		newMarkersCmd(),
		newDiffCmd(),
		newShareCmd(),
	)
	return root
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse FILE",
		Short: "Print the blocks and frontmatter of a plan as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			markdown, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			doc := blocks.ParseDocument(markdown)
			if doc.Blocks == nil {
				doc.Blocks = []blocks.Block{}
			}
			return writeJSON(cmd, doc)
		},
	}
}

func newFeedbackCmd() *cobra.Command {
	var references []string
	cmd := &cobra.Command{
		Use:   "feedback PLAN ANNOTATIONS",
		Short: "Render annotations on a plan as a feedback report",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			markdown, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			annotations, err := readAnnotations(cmd, args[1])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), feedback.Export(blocks.Parse(markdown), annotations, references...))
			return err
		},
	}
	cmd.Flags().StringSliceVar(&references, "reference", nil, "image path that applies to the whole review (repeatable)")
	return cmd
}

func newMarkersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "markers",
		Short: "Extract, strip or inject validation markers",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "extract FILE",
			Short: "List validation markers as JSON",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				markdown, err := readInput(cmd, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd, markers.Extract(markdown))
			},
		},
		&cobra.Command{
			Use:   "strip FILE",
			Short: "Print the plan without validation markers",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				markdown, err := readInput(cmd, args[0])
				if err != nil {
					return err
				}
				_, err = io.WriteString(cmd.OutOrStdout(), markers.Strip(markdown))
				return err
			},
		},
		&cobra.Command{
			Use:   "inject FILE ANNOTATIONS",
			Short: "Print the plan with markers for sign-off annotations",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				markdown, err := readInput(cmd, args[0])
				if err != nil {
					return err
				}
				annotations, err := readAnnotations(cmd, args[1])
				if err != nil {
					return err
				}
				result := markers.Inject(markdown, annotations)
				if _, err := io.WriteString(cmd.OutOrStdout(), result.Markdown); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%d marker(s) added\n", result.MarkersAdded)
				return nil
			},
		},
	)
	return cmd
}

func newDiffCmd() *cobra.Command {
	var threshold float64
	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Structural diff of two plan versions as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if threshold < 0 || threshold > 1 {
				return fmt.Errorf("threshold must be between 0 and 1, got %v", threshold)
			}
			oldMarkdown, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			newMarkdown, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			rows := blockdiff.DiffWithThreshold(blocks.Parse(oldMarkdown), blocks.Parse(newMarkdown), threshold)
			return writeJSON(cmd, map[string]any{
				"rows":    rows,
				"summary": blockdiff.Summarize(rows),
			})
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", blockdiff.DefaultModifyThreshold, "minimum similarity for a block to count as modified")
	return cmd
}

func newShareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share",
		Short: "Encode or decode share payloads",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "encode PLAN [ANNOTATIONS]",
			Short: "Print the encoded payload and its share id",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				markdown, err := readInput(cmd, args[0])
				if err != nil {
					return err
				}
				payload := share.Payload{Plan: markdown}
				if len(args) == 2 {
					if payload.Annotations, err = readAnnotations(cmd, args[1]); err != nil {
						return err
					}
				}
				encoded, err := share.Compress(payload)
				if err != nil {
					return err
				}
				return writeJSON(cmd, map[string]string{"id": share.ID(encoded), "encoded": encoded})
			},
		},
		&cobra.Command{
			Use:   "decode ENCODED",
			Short: "Print a share payload as JSON",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				encoded := args[0]
				if encoded == "-" {
					data, err := io.ReadAll(cmd.InOrStdin())
					if err != nil {
						return fmt.Errorf("read stdin: %w", err)
					}
					encoded = string(data)
				}
				payload, err := share.Decompress(strings.TrimSpace(encoded))
				if err != nil {
					return err
				}
				return writeJSON(cmd, payload)
			},
		},
	)
	return cmd
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func readAnnotations(cmd *cobra.Command, path string) ([]annotation.Annotation, error) {
	raw, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	var items []annotation.Annotation
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode annotations %s: %w", path, err)
	}
	for i, item := range items {
		if err := annotation.Validate(item); err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i, err)
		}
	}
	return items, nil
}

func writeJSON(cmd *cobra.Command, payload any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
