package cmd

import (
	"fmt"
	"os"

	"github.com/sgzwiz/oblc/internal/lexer"
	"github.com/sgzwiz/oblc/internal/token"
	"github.com/spf13/cobra"
)

var (
	lexShowPos    bool
	lexOnlyErrors bool
)

var lexCmd = &cobra.Command{
	Use:   "lex <file>",
	Short: "Tokenize a source file and print the resulting tokens",
	Args:  cobra.ExactArgs(1),
	RunE:  runLex,
}

func init() {
	rootCmd.AddCommand(lexCmd)
	lexCmd.Flags().BoolVar(&lexShowPos, "show-pos", false, "show token positions (line:column)")
	lexCmd.Flags().BoolVar(&lexOnlyErrors, "only-errors", false, "show only illegal tokens")
}

func runLex(_ *cobra.Command, args []string) error {
	filename := args[0]
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filename, err)
	}

	l := lexer.New(filename, string(content))
	errCount := 0
	for {
		tok := l.Next()
		if lexOnlyErrors && tok.Kind != token.ILLEGAL {
			if tok.Kind == token.EOF {
				break
			}
			continue
		}
		if tok.Kind == token.ILLEGAL {
			errCount++
		}
		printToken(tok)
		if tok.Kind == token.EOF {
			break
		}
	}

	if errCount > 0 {
		return fmt.Errorf("found %d illegal token(s)", errCount)
	}
	return nil
}

func printToken(tok token.Token) {
	if lexShowPos {
		fmt.Println(tok.String())
		return
	}
	fmt.Printf("%q\n", tok.Literal)
}
