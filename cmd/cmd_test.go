package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const statementCSV = "Account Statement\n" +
	"Transaction Date,Value Date,Particulars,Withdrawals,Deposits,Balance\n" +
	"01-Apr-2024,01-Apr-2024,UPI/123/Payment from ABC/SHAMBHU,,180.00,1180.00\n" +
	"01-Apr-2024,01-Apr-2024,NEFT/Rent,500.00,,680.00\n" +
	"03-Apr-2024,03-Apr-2024,UPI/789/PQR/shambhu,,109.00,789.00\n" +
	"04-Apr-2024,04-Apr-2024,UPI/111/LMN/SHAMBHU,,250.00,1039.00\n"

// testWorkspace writes a statement and a config pointing output at a temp dir.
func testWorkspace(t *testing.T) (configPath, statementPath, outputDir string) {
	t.Helper()
	dir := t.TempDir()

	for _, name := range []string{"POS_AUTH_TOKEN", "AUTOMATION_USERNAME", "AUTOMATION_PASSWORD"} {
		t.Setenv(name, "")
	}

	outputDir = filepath.Join(dir, "output")
	configPath = filepath.Join(dir, "config.yaml")
	statementPath = filepath.Join(dir, "april.csv")

	cfg := "output_dir: " + outputDir + "\n" +
		"log_level: error\n" +
		"statement:\n  merchant_keyword: SHAMBHU\n" +
		"pacing:\n  delay: 1ms\n"
	if err := os.WriteFile(configPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(statementPath, []byte(statementCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	return configPath, statementPath, outputDir
}

// execute runs the root command. Flag variables outlive a run, so the ones
// these tests set are reset first.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	parseJSON = false
	replayMode, replayDryRun, replayLimit, replayArchive = "", false, 0, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestParseCommand_JSON(t *testing.T) {
	configPath, statementPath, _ := testWorkspace(t)

	out, err := execute(t, "parse", statementPath, "--config", configPath, "--json")
	if err != nil {
		t.Fatalf("parse error = %v\n%s", err, out)
	}

	var got struct {
		Files []struct {
			File         string            `json:"file"`
			Transactions []json.RawMessage `json:"transactions"`
		} `json:"files"`
		Stats struct {
			Total int `json:"total"`
		} `json:"stats"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(got.Files) != 1 || len(got.Files[0].Transactions) != 3 {
		t.Fatalf("files = %+v, want one file with 3 transactions", got.Files)
	}
}

func TestReplayCommand_DryRun(t *testing.T) {
	configPath, statementPath, outputDir := testWorkspace(t)

	out, err := execute(t, "replay", statementPath, "--config", configPath, "--dry-run")
	if err != nil {
		t.Fatalf("replay error = %v\n%s", err, out)
	}

	if strings.Count(out, "✓ row") != 3 {
		t.Errorf("expected 3 replayed rows:\n%s", out)
	}
	if !strings.Contains(out, "dry run") {
		t.Errorf("output does not mention the dry run:\n%s", out)
	}

	results, _ := filepath.Glob(filepath.Join(outputDir, "replay_april_*.json"))
	if len(results) != 1 {
		t.Fatalf("result files = %v, want 1", results)
	}
	summaries, _ := filepath.Glob(filepath.Join(outputDir, "replay_summary_*.txt"))
	if len(summaries) != 1 {
		t.Errorf("summary files = %v, want 1", summaries)
	}
	if logs, _ := filepath.Glob(filepath.Join(outputDir, "error_log_*.txt")); len(logs) != 0 {
		t.Errorf("unexpected error log %v", logs)
	}
	if _, err := os.Stat(statementPath); err != nil {
		t.Errorf("dry run moved the statement: %v", err)
	}
}

func TestReplayCommand_RequiresCredentials(t *testing.T) {
	configPath, statementPath, _ := testWorkspace(t)

	_, err := execute(t, "replay", statementPath, "--config", configPath, "--mode", "api")
	if err == nil || !strings.Contains(err.Error(), "POS_AUTH_TOKEN") {
		t.Fatalf("err = %v, want missing credential error", err)
	}
}
