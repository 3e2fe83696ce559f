package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/singura/saas-xray/internal/config"
	"github.com/singura/saas-xray/internal/scopes"
)

var scopesJSON bool

var scopesCmd = &cobra.Command{
	Use:         "scopes",
	Short:       "List the scope risk catalog.",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationPlainOutput: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := scopesLibraryFromEnv()
		if err != nil {
			return err
		}

		entries := lib.Entries()
		if scopesJSON {
			b, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(b))
			return nil
		}

		for _, e := range entries {
			fmt.Printf("%-3d %-8s %-22s %s\n", e.RiskScore, e.RiskLevel, e.ServiceName, e.ScopeURL)
		}
		fmt.Printf("%d scopes cataloged\n", lib.Len())
		return nil
	},
}

var scopesLookupCmd = &cobra.Command{
	Use:         "lookup <scope-url>",
	Short:       "Resolve one scope URL against the catalog.",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationPlainOutput: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := scopesLibraryFromEnv()
		if err != nil {
			return err
		}

		entry, ok := lib.Lookup(args[0])
		if !ok {
			return fmt.Errorf("scope %q is not in the catalog; unknown scopes score a neutral 50", args[0])
		}

		if scopesJSON {
			b, err := json.MarshalIndent(entry, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(b))
			return nil
		}

		fmt.Printf("scope=%s service=%s access=%s risk=%d level=%s\n", entry.ScopeURL, entry.ServiceName, entry.AccessLevel, entry.RiskScore, entry.RiskLevel)
		fmt.Printf("description: %s\n", entry.Description)
		if len(entry.RegulatoryImpact) > 0 {
			fmt.Printf("regulatory: %v\n", entry.RegulatoryImpact)
		}
		if len(entry.RecommendedAlternatives) > 0 {
			fmt.Printf("narrower alternatives: %v\n", entry.RecommendedAlternatives)
		}
		return nil
	},
}

func scopesLibraryFromEnv() (*scopes.Library, error) {
	cfg, err := config.LoadOptionalDB()
	if err != nil {
		return nil, err
	}
	return loadScopeLibrary(cfg)
}

func init() {
	scopesCmd.Flags().BoolVar(&scopesJSON, "json", false, "Print the catalog as JSON")
	scopesLookupCmd.Flags().BoolVar(&scopesJSON, "json", false, "Print the entry as JSON")
	scopesCmd.AddCommand(scopesLookupCmd)
}
