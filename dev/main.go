// dev serves a fake storefront on localhost and points partwatch at it through
// config.local.json5, so the whole pipeline can be run without the real site.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"partwatch/internal/scrapers/cafe24/cafe24test"
	"partwatch/pkg/serviceutil"
)

const (
	STATE_DIR    = "dev/.state"
	LOCAL_CONFIG = "config.local.json5"
	USERNAME     = "dev"
	PASSWORD     = "dev"
)

var models = []string{"16 Pro Max", "16 Pro", "16", "15 Pro", "15", "14", "13 mini", "12", "11", "XS Max", "XR", "SE 3세대"}

var parts = []struct {
	name string
	base int
}{
	{name: "액정", base: 120_000},
	{name: "배터리", base: 40_000},
	{name: "후면 카메라", base: 70_000},
	{name: "후면유리", base: 25_000},
}

// catalog builds the listing pages of the iPhone category, prices drift with the day
// so consecutive runs on different days produce history.
func catalog(day int) [][]string {
	var items []string
	no := 1
	for mi, model := range models {
		for pi, part := range parts {
			price := part.base - mi*5_000 + ((day+mi+pi)%3)*1_000
			soldOut := (day+no)%11 == 0
			items = append(items, cafe24test.Item(
				no,
				fmt.Sprintf("아이폰 %s %s", model, part.name),
				fmt.Sprintf("%d원", price),
				soldOut,
			))
			no++
		}
	}

	var pages [][]string
	for len(items) > 0 {
		n := min(len(items), 12)
		pages = append(pages, items[:n])
		items = items[n:]
	}
	return pages
}

func writeLocalConfig(port int, recreate bool) error {
	_, err := os.Stat(LOCAL_CONFIG)
	if err == nil && !recreate {
		slog.Info("local config already exists, leaving it alone", "path", LOCAL_CONFIG)
		return nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	contents := fmt.Sprintf(`{
  // written by dev, points partwatch at the fake storefront
  base_url: "http://localhost:%d",
  credentials: { id: %q, secret: %q },
  store: { file: %q },
}
`, port, USERNAME, PASSWORD, filepath.Join(STATE_DIR, "partwatch.db"))
	return os.WriteFile(LOCAL_CONFIG, []byte(contents), 0600)
}

func setup(port int, recreate bool) error {
	_, err := os.Stat("go.mod")
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("dev must be run in the repository root (the directory of 'go.mod')")
	}

	if recreate {
		err = os.RemoveAll(STATE_DIR)
		if err != nil {
			return err
		}
	}
	err = os.MkdirAll(STATE_DIR, 0777)
	if err != nil {
		return err
	}
	return writeLocalConfig(port, recreate)
}

func main() {
	port := flag.Int("port", 8081, "The port to serve the fake storefront on.")
	recreate := flag.Bool("recreate", false, "Remove the dev state and rewrite the local config.")
	flag.Parse()

	err := setup(*port, *recreate)
	if err != nil {
		serviceutil.Fatal("failed to create dev environment", err)
	}

	site := &cafe24test.Site{
		Username:  USERNAME,
		Password:  PASSWORD,
		LoginPage: cafe24test.LoginFormById,
		Pages:     map[string][][]string{"24": catalog(time.Now().YearDay())},
	}
	err = serviceutil.ServeHttp(serviceutil.SignalContext(), *port, site.Handler())
	if err != nil {
		serviceutil.Fatal("fake storefront stopped", err)
	}
}
