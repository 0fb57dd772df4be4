// Grafana dashboards over the GreptimeDB export tables
package dashboard

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templates embed.FS

// Tables names the export tables the dashboards query.
type Tables struct {
	Drones   string
	Missions string
}

// TablesFor derives the table names written by the GreptimeDB recorder for
// the given drone table.
func TablesFor(droneTable string) Tables {
	return Tables{Drones: droneTable, Missions: droneTable + "_missions"}
}

// Render executes every embedded dashboard template with tables and writes
// the results to outDir. Templates read the datasource from the environment.
func Render(outDir string, tables Tables) error {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
	}

	t, err := template.New("dashboards").Funcs(funcMap).ParseFS(templates, "templates/*.tmpl")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, tpl := range t.Templates() {
		name := tpl.Name()
		if !strings.HasSuffix(name, ".tmpl") {
			continue
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(name, ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		if err := tpl.Execute(f, tables); err != nil {
			f.Close()
			return fmt.Errorf("render %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
