package main

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/TomCN0803/sdverify/pkg/issuer/issuertest"
	"github.com/TomCN0803/sdverify/pkg/rule"
	"github.com/TomCN0803/sdverify/pkg/verifier"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// verifierResult is the JSON document printed by every command.
type verifierResult struct {
	Result                bool              `json:"result"`
	Class                 string            `json:"class,omitempty"`
	Diagnostic            string            `json:"diagnostic,omitempty"`
	RevealedAttributeInfo map[string]string `json:"revealedAttributeInfo,omitempty"`
	ErrorMessage          string            `json:"errorMessage,omitempty"`
}

func printResult(w io.Writer, res *verifierResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func newRootCmd() (*cobra.Command, error) {
	v := newViper()
	root := &cobra.Command{
		Use:          "sdverifier",
		Short:        "Verify selective-disclosure credential proofs",
		SilenceUsage: true,
	}
	if err := bindFlags(v, root.PersistentFlags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	root.AddCommand(verifyCmd(v))
	root.AddCommand(revealedCmd(v))
	root.AddCommand(demoCmd())
	return root, nil
}

// setup loads the configuration and builds a verifier from it.
func setup(v *viper.Viper) (*verifier.Verifier, *zap.Logger, error) {
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, nil, err
	}
	logger, err := cfg.logger()
	if err != nil {
		return nil, nil, err
	}
	reg, err := cfg.registry()
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("loaded issuer parameters", zap.Int("issuers", reg.Len()), zap.Int("workers", cfg.Workers))

	return verifier.New(reg, verifier.WithLogger(logger), verifier.WithWorkers(cfg.Workers)), logger, nil
}

func verifyCmd(v *viper.Viper) *cobra.Command {
	var rulePath, requestPath string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a request against a rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ver, logger, err := setup(v)
			if err != nil {
				return err
			}
			defer logger.Sync()

			rawRule, err := os.ReadFile(rulePath)
			if err != nil {
				return err
			}
			rawReq, err := os.ReadFile(requestPath)
			if err != nil {
				return err
			}

			vr, err := rule.Unmarshal(rawRule)
			if err != nil {
				return printResult(cmd.OutOrStdout(), &verifierResult{ErrorMessage: err.Error()})
			}
			out := ver.VerifyProof(vr, rawReq)
			res := &verifierResult{Result: out.Passed, Diagnostic: out.Diagnostic}
			if !out.Passed {
				res.Class = out.Class.String()
			}
			return printResult(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&rulePath, "rule", "", "encoded verification rule")
	cmd.Flags().StringVar(&requestPath, "request", "", "encoded verification request")
	cmd.MarkFlagRequired("rule")
	cmd.MarkFlagRequired("request")
	return cmd
}

func revealedCmd(v *viper.Viper) *cobra.Command {
	var requestPath string
	cmd := &cobra.Command{
		Use:   "revealed",
		Short: "Print the revealed attributes of a request without verifying it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ver, logger, err := setup(v)
			if err != nil {
				return err
			}
			defer logger.Sync()

			rawReq, err := os.ReadFile(requestPath)
			if err != nil {
				return err
			}
			attrs, err := ver.GetRevealedAttrsFromVerificationRequest(rawReq)
			if err != nil {
				return printResult(cmd.OutOrStdout(), &verifierResult{ErrorMessage: err.Error()})
			}
			return printResult(cmd.OutOrStdout(), &verifierResult{Result: true, RevealedAttributeInfo: attrs})
		},
	}
	cmd.Flags().StringVar(&requestPath, "request", "", "encoded verification request")
	cmd.MarkFlagRequired("request")
	return cmd
}

var demoSchema = rule.Schema{
	{Name: "name", Kind: rule.Hidden},
	{Name: "age_bracket", Kind: rule.Revealed},
	{Name: "income", Kind: rule.Hidden},
	{Name: "country", Kind: rule.Revealed},
}

// demoCmd writes a self-contained example: issuer parameters, a rule, a
// matching request and a configuration file trusting the issuer.
func demoCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Write example issuer parameters, rule, request and configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			is, err := issuertest.Setup(nil, 1, demoSchema)
			if err != nil {
				return err
			}
			h, err := is.Holder(map[string]string{
				"name":        "alice",
				"age_bracket": "30-39",
				"income":      "75000",
				"country":     "NL",
			})
			if err != nil {
				return err
			}

			nonce := make([]byte, 16)
			if _, err := rand.Read(nonce); err != nil {
				return err
			}
			vr := &rule.VerificationRule{
				IssuerKeyID: is.Params.ID(),
				Nonce:       nonce,
				Predicates: []rule.PredicateSpec{
					{Attribute: "age_bracket", Kind: rule.PureReveal},
					{Attribute: "income", Kind: rule.Range, Min: 50000, Max: 100000},
					{Attribute: "country", Kind: rule.Membership, Operands: []string{"BE", "NL", "LU"}},
				},
			}
			req, err := h.BuildRequest(vr, nil, nonce)
			if err != nil {
				return err
			}

			files := map[string][]byte{
				"issuer.bin":  is.Params.Marshal(),
				"rule.bin":    vr.Marshal(),
				"request.bin": req.Marshal(),
			}
			for name, b := range files {
				if err := os.WriteFile(filepath.Join(outDir, name), b, 0o644); err != nil {
					return err
				}
			}

			cv := viper.New()
			cv.Set("issuers", []string{filepath.Join(outDir, "issuer.bin")})
			cv.Set("log.level", "info")
			cfgPath := filepath.Join(outDir, "sdverifier.yaml")
			if err := cv.WriteConfigAs(cfgPath); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory")
	return cmd
}
