package web

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// ChainGallery renders every doodle of one chain, shallowest first.
func ChainGallery(page ChainPage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Doodle chain</title>
    <style>
      body { font-family: system-ui, sans-serif; margin: 0; background: #f6f4ef; color: #1a1a1a; }
      main { max-width: 960px; margin: 0 auto; padding: 24px; }
      .grid { display: grid; grid-template-columns: repeat(auto-fill, minmax(220px, 1fr)); gap: 16px; }
      figure { margin: 0; background: #fff; border-radius: 8px; padding: 8px; box-shadow: 0 1px 3px rgba(0,0,0,.1); }
      img { width: 100%; display: block; border-radius: 4px; }
      figcaption { font-size: 14px; margin-top: 6px; }
      .muted { color: #666; }
    </style>
  </head>
  <body>
    <main>
      <h1>Doodle chain</h1>
`)
		b.WriteString(`      <p class="muted">Root `)
		b.WriteString(esc(page.RootID))
		b.WriteString(` &middot; `)
		b.WriteString(itoa(len(page.Doodles)))
		b.WriteString(` doodles by `)
		b.WriteString(itoa(page.Artists()))
		b.WriteString(` artists</p>
`)
		if len(page.Doodles) == 0 {
			b.WriteString(`      <p>This chain has no doodles yet.</p>
`)
		} else {
			b.WriteString(`      <section class="grid">
`)
			for _, d := range page.Doodles {
				b.WriteString(`        <figure id="doodle-`)
				b.WriteString(esc(d.ID))
				b.WriteString(`">
          <img src="`)
				b.WriteString(esc(d.ImageURL))
				b.WriteString(`" alt="Doodle by `)
				b.WriteString(esc(d.Artist))
				b.WriteString(`" loading="lazy"/>
          <figcaption>#`)
				b.WriteString(itoa(d.TailLength))
				b.WriteString(` by `)
				b.WriteString(esc(d.Artist))
				b.WriteString(` <span class="muted">`)
				b.WriteString(formatTime(d.CreatedAt))
				b.WriteString(`</span></figcaption>
        </figure>
`)
			}
			b.WriteString(`      </section>
`)
		}
		b.WriteString(`    </main>
  </body>
</html>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}
