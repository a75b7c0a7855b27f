package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var modelsVerbose bool

var modelsCmd = &cobra.Command{
	Use:   "models [provider]",
	Short: "List configured models",
	Long: `List all models from configured providers.

Examples:
  polychat models              # List all models
  polychat models anthropic    # List only Anthropic models
  polychat models --verbose    # Show pricing information`,
	Args: cobra.MaximumNArgs(1),
	RunE: runModels,
}

func init() {
	modelsCmd.Flags().BoolVarP(&modelsVerbose, "verbose", "v", false, "Include pricing")
}

func runModels(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	var providerFilter string
	if len(args) > 0 {
		providerFilter = args[0]
	}

	currentProvider, currentModel := a.manager.CurrentModel()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	if modelsVerbose {
		fmt.Fprintln(w, "PROVIDER\tMODEL\tNAME\tINPUT $/1M\tOUTPUT $/1M\t")
	} else {
		fmt.Fprintln(w, "PROVIDER\tMODEL\tNAME\t")
	}

	for _, ref := range a.manager.AllModels() {
		if providerFilter != "" && ref.Provider != providerFilter {
			continue
		}

		marker := ""
		if ref.Provider == currentProvider && ref.Model == currentModel {
			marker = " *"
		}

		if modelsVerbose {
			fmt.Fprintf(w, "%s\t%s\t%s%s\t%.2f\t%.2f\t\n", ref.Provider, ref.Model, ref.DisplayName, marker, ref.InputPrice, ref.OutputPrice)
		} else {
			fmt.Fprintf(w, "%s\t%s\t%s%s\t\n", ref.Provider, ref.Model, ref.DisplayName, marker)
		}
	}

	return nil
}

// splitModelRef parses "provider/model-id".
func splitModelRef(s string) (string, string, bool) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
