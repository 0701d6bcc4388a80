package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/theneilagencia/glimora-sub000/internal/model"
	"github.com/theneilagencia/glimora-sub000/internal/scoring"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score one employee profile without touching the store",
	Long: `Reads an employee record as JSON and prints the derived score input,
the total score, its label and the per-component breakdown.

Examples:
  echo '{"full_name":"Ana Silva","title":"Diretora Comercial","profile_url":"https://www.linkedin.com/in/ana","tenure":"3 anos"}' | glimora score

  glimora score --file employee.json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("file")

		in := cmd.InOrStdin()
		if path != "" {
			f, err := os.Open(path)
			if err != nil {
				return eris.Wrapf(err, "open %s", path)
			}
			defer f.Close() //nolint:errcheck
			in = f
		}

		engine, err := initEngine(cfg)
		if err != nil {
			return err
		}
		return scoreEmployee(in, cmd.OutOrStdout(), engine)
	},
}

// scoreReport is what the score command prints.
type scoreReport struct {
	Employee model.EmployeeRecord `json:"employee"`
	Input    scoring.ScoreInput   `json:"input"`
	Result   scoring.ScoreResult  `json:"result"`
}

func scoreEmployee(r io.Reader, w io.Writer, engine *scoring.Engine) error {
	var emp model.EmployeeRecord
	if err := json.NewDecoder(r).Decode(&emp); err != nil {
		return eris.Wrap(err, "decode employee record")
	}

	in := engine.ParseEmployee(emp)
	return writeResult(w, scoreReport{
		Employee: emp,
		Input:    in,
		Result:   engine.Calculate(in),
	})
}

func init() {
	scoreCmd.Flags().String("file", "", "read the employee JSON from this file instead of stdin")
	rootCmd.AddCommand(scoreCmd)
}
