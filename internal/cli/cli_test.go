package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("teamctl %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestProjectSetupAndAccess(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	dir := t.TempDir()
	common := []string{"--config", filepath.Join(dir, "none.yaml"), "--db", filepath.Join(dir, "cli.db"), "-p", "p1"}

	out := run(t, append(common, "create-project", "--owner", "olga", "--policy", "admin_only")...)
	if !strings.Contains(out, `"owner_id": "olga"`) {
		t.Errorf("create-project output = %s", out)
	}

	run(t, append(common, "set-role", "alice", "admin")...)

	if out := run(t, append(common, "check-access", "alice")...); !strings.Contains(out, `"allowed": true`) {
		t.Errorf("admin check = %s", out)
	}
	if out := run(t, append(common, "check-access", "mallory")...); !strings.Contains(out, `"allowed": false`) {
		t.Errorf("stranger check = %s", out)
	}
}

func TestImportRosterAndExport(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	dir := t.TempDir()
	common := []string{"--config", filepath.Join(dir, "none.yaml"), "--db", filepath.Join(dir, "cli.db"), "-p", "p2"}

	f := excelize.NewFile()
	for i, row := range [][]any{{"Name", "Role"}, {"Jane Doe", "CTO"}, {"Bob Smith", "Sales"}} {
		addr, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", addr, &row); err != nil {
			t.Fatal(err)
		}
	}
	roster := filepath.Join(dir, "roster.xlsx")
	if err := f.SaveAs(roster); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if out := run(t, append(common, "import-roster", roster)...); !strings.Contains(out, "imported 2 people") {
		t.Errorf("import output = %s", out)
	}
	report := filepath.Join(dir, "report.xlsx")
	if out := run(t, append(common, "export", report)...); !strings.Contains(out, "wrote") {
		t.Errorf("export output = %s", out)
	}
}
