package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"legends/internal/config"
	"legends/internal/ddragon"
	"legends/internal/riot"
	"legends/internal/store"
)

var errCheckFailed = errors.New("one or more checks failed")

type checkResult struct {
	Name   string
	OK     bool
	Detail string
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check Data Dragon, the Riot API key and the document store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			results := runChecks(cmd.Context(), cfg)
			renderChecks(cmd.OutOrStdout(), results)
			for _, r := range results {
				if !r.OK {
					log.Error("check failed", "check", r.Name, "detail", r.Detail)
					return errCheckFailed
				}
			}
			return nil
		},
	}
}

func runChecks(ctx context.Context, cfg *config.Config) []checkResult {
	ctx, cancel := context.WithTimeout(ctx, cfg.HTTPTimeout)
	defer cancel()

	var results []checkResult

	dd := ddragon.NewClient(ddragon.WithBaseURL(cfg.DDragonBaseURL), ddragon.WithTimeout(cfg.HTTPTimeout))
	if v, err := dd.LatestVersion(ctx); err != nil {
		results = append(results, checkResult{"ddragon", false, err.Error()})
	} else {
		results = append(results, checkResult{"ddragon", true, "latest version " + v})
	}

	results = append(results, checkRiot(ctx, cfg))

	if cfg.StoreURI == "" {
		results = append(results, checkResult{"store", false, "STORE_URI not set"})
	} else if s, err := store.Open(ctx, cfg.StoreURI, cfg.StoreDatabase); err != nil {
		results = append(results, checkResult{"store", false, err.Error()})
	} else {
		n, err := s.Count(ctx, "mastery")
		_ = s.Close(context.WithoutCancel(ctx))
		if err != nil {
			results = append(results, checkResult{"store", false, err.Error()})
		} else {
			results = append(results, checkResult{"store", true, fmt.Sprintf("%d mastery documents", n)})
		}
	}
	return results
}

func checkRiot(ctx context.Context, cfg *config.Config) checkResult {
	rc, err := riot.NewClient(cfg.RiotAPIKey, riot.WithBaseURL(cfg.RiotBaseURL), riot.WithTimeout(cfg.HTTPTimeout))
	if err != nil {
		return checkResult{"riot", false, err.Error()}
	}
	valid, err := rc.ValidateKey(ctx)
	switch {
	case err != nil:
		return checkResult{"riot", false, err.Error()}
	case !valid:
		return checkResult{"riot", false, "API key rejected"}
	}
	return checkResult{"riot", true, "API key accepted"}
}

func renderChecks(w io.Writer, results []checkResult) {
	tbl := tablewriter.NewWriter(w)
	tbl.SetAutoWrapText(false)
	tbl.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	tbl.SetAutoFormatHeaders(false)
	tbl.SetBorder(true)
	tbl.SetHeader([]string{"Check", "Result", "Detail"})
	for _, r := range results {
		result := "ok"
		if !r.OK {
			result = "FAILED"
		}
		tbl.Append([]string{r.Name, result, r.Detail})
	}
	tbl.Render()
}
