package deck

import (
	"fmt"
	"html"
	"strings"
)

// palette is the resolved color set for one theme.
type palette struct {
	Bg        string
	Surface   string
	Accent    string
	AccentAlt string
	Text      string
	TextMuted string
	Border    string
}

func themePalette(theme string) palette {
	switch theme {
	case "minimal":
		return palette{
			Bg:        "#f8f9fa",
			Surface:   "#ffffff",
			Accent:    "#2563eb",
			AccentAlt: "#1d4ed8",
			Text:      "#111827",
			TextMuted: "#6b7280",
			Border:    "#e5e7eb",
		}
	case "bold":
		return palette{
			Bg:        "#0f0f1a",
			Surface:   "#1a1a2e",
			Accent:    "#f59e0b",
			AccentAlt: "#d97706",
			Text:      "#ffffff",
			TextMuted: "#a1a1aa",
			Border:    "#2d2d42",
		}
	default: // "modern" and anything unrecognized
		return palette{
			Bg:        "#0f172a",
			Surface:   "#1e293b",
			Accent:    "#6366f1",
			AccentAlt: "#4f46e5",
			Text:      "#f1f5f9",
			TextMuted: "#94a3b8",
			Border:    "#334155",
		}
	}
}

func esc(s string) string {
	return html.EscapeString(s)
}

const slideBaseStyle = "position:absolute;inset:0;display:flex;flex-direction:column;justify-content:center;align-items:center;padding:60px;box-sizing:border-box;background:%s;"

// renderSlide produces the block for one slide. Unknown kinds fall back
// to an index-only block so one malformed slide never sinks the deck.
func renderSlide(s Slide, index int, p palette) string {
	style := fmt.Sprintf(slideBaseStyle, p.Bg)

	switch s.Type {
	case TypeTitle:
		var sub string
		if s.Subtitle != "" {
			sub = fmt.Sprintf(`<p style="font-size:clamp(1rem,2vw,1.5rem);color:%s;margin:0;font-weight:300;">%s</p>`, p.TextMuted, esc(s.Subtitle))
		}
		return fmt.Sprintf(`<div class="slide" data-index="%d" style="%s">
<div style="text-align:center;max-width:900px;width:100%%;">
<div style="width:60px;height:4px;background:%s;margin:0 auto 40px;border-radius:2px;"></div>
<h1 style="font-size:clamp(2rem,5vw,4rem);font-weight:800;color:%s;line-height:1.15;margin:0 0 24px;">%s</h1>
%s
<div style="width:60px;height:4px;background:%s;margin:40px auto 0;border-radius:2px;"></div>
</div>
</div>`, index, style, p.Accent, p.Text, esc(s.Heading), sub, p.Accent)

	case TypeBullets:
		var points strings.Builder
		for i, pt := range s.Points {
			fmt.Fprintf(&points, `<li class="bullet-item" style="display:flex;align-items:flex-start;gap:16px;opacity:0;transform:translateX(-20px);transition:all 0.4s ease %.1fs;">
<span style="min-width:32px;height:32px;background:%s;border-radius:50%%;display:flex;align-items:center;justify-content:center;font-size:0.8rem;font-weight:700;color:#fff;flex-shrink:0;margin-top:2px;">%d</span>
<span style="font-size:clamp(1rem,1.8vw,1.3rem);color:%s;line-height:1.6;">%s</span>
</li>`, float64(i)*0.1, p.Accent, i+1, p.Text, esc(pt))
		}
		return fmt.Sprintf(`<div class="slide" data-index="%d" style="%salign-items:flex-start;">
<div style="max-width:960px;width:100%%;display:flex;gap:40px;align-items:flex-start;">
<div style="flex:1;min-width:0;">
<h2 style="font-size:clamp(1.5rem,3vw,2.5rem);font-weight:700;color:%s;margin:0 0 40px;padding-bottom:16px;border-bottom:2px solid %s;">%s</h2>
<ul style="list-style:none;margin:0;padding:0;display:flex;flex-direction:column;gap:16px;">%s</ul>
</div>
%s
</div>
</div>`, index, style, p.Text, p.Border, esc(s.Heading), points.String(), sideImage(s.UserImageURL, p))

	case TypeContent:
		return fmt.Sprintf(`<div class="slide" data-index="%d" style="%salign-items:flex-start;">
<div style="max-width:960px;width:100%%;display:flex;gap:40px;align-items:flex-start;">
<div style="flex:1;min-width:0;">
<h2 style="font-size:clamp(1.5rem,3vw,2.5rem);font-weight:700;color:%s;margin:0 0 32px;padding-bottom:16px;border-bottom:2px solid %s;">%s</h2>
<p style="font-size:clamp(1rem,1.8vw,1.25rem);color:%s;line-height:1.8;margin:0;">%s</p>
</div>
%s
</div>
</div>`, index, style, p.Text, p.Border, esc(s.Heading), p.TextMuted, esc(s.Body), sideImage(s.UserImageURL, p))

	case TypeQuote:
		var cite string
		if s.Attribution != "" {
			cite = fmt.Sprintf(`<cite style="font-size:1rem;color:%s;font-style:normal;">&mdash; %s</cite>`, p.TextMuted, esc(s.Attribution))
		}
		return fmt.Sprintf(`<div class="slide" data-index="%d" style="%s">
<div style="max-width:800px;width:100%%;text-align:center;">
<span style="font-size:6rem;color:%s;line-height:1;display:block;margin-bottom:-20px;opacity:0.5;">&ldquo;</span>
<blockquote style="font-size:clamp(1.2rem,2.5vw,2rem);font-style:italic;color:%s;line-height:1.6;margin:0 0 32px;">%s</blockquote>
%s
</div>
</div>`, index, style, p.Accent, p.Text, esc(s.Text), cite)

	case TypeStats:
		var cells strings.Builder
		for _, st := range s.Stats {
			fmt.Fprintf(&cells, `<div style="background:%s;border:1px solid %s;border-radius:16px;padding:32px 24px;text-align:center;border-top:3px solid %s;">
<div style="font-size:clamp(2rem,4vw,3.5rem);font-weight:800;color:%s;line-height:1;margin-bottom:12px;">%s</div>
<div style="font-size:1rem;color:%s;font-weight:500;">%s</div>
</div>`, p.Surface, p.Border, p.Accent, p.Accent, esc(st.Value), p.TextMuted, esc(st.Label))
		}
		return fmt.Sprintf(`<div class="slide" data-index="%d" style="%salign-items:flex-start;">
<div style="max-width:960px;width:100%%;">
<h2 style="font-size:clamp(1.5rem,3vw,2.5rem);font-weight:700;color:%s;margin:0 0 48px;text-align:center;">%s</h2>
<div style="display:grid;grid-template-columns:repeat(auto-fit,minmax(200px,1fr));gap:24px;">%s</div>
</div>
</div>`, index, style, p.Text, esc(s.Heading), cells.String())

	case TypeImage:
		var block string
		if s.UserImageURL != "" {
			block = fmt.Sprintf(`<img src="%s" alt="%s" style="width:100%%;height:320px;object-fit:cover;border-radius:16px;border:2px solid %s;margin-bottom:24px;display:block;" />`, esc(s.UserImageURL), esc(s.Heading), p.Border)
		} else {
			block = fmt.Sprintf(`<div style="width:100%%;height:320px;background:linear-gradient(135deg,%s33,%s66);border-radius:16px;display:flex;align-items:center;justify-content:center;border:2px dashed %s;margin-bottom:24px;" data-image-placeholder="true">
<span style="color:%s;font-size:1rem;">Drop an image here &mdash; or send one via the bot</span>
</div>`, p.Accent, p.AccentAlt, p.Border, p.TextMuted)
		}
		var caption string
		if s.Caption != "" {
			caption = fmt.Sprintf(`<p style="font-size:1rem;color:%s;text-align:center;font-style:italic;">%s</p>`, p.TextMuted, esc(s.Caption))
		}
		return fmt.Sprintf(`<div class="slide" data-index="%d" style="%salign-items:flex-start;">
<div style="max-width:900px;width:100%%;">
<h2 style="font-size:clamp(1.5rem,3vw,2.5rem);font-weight:700;color:%s;margin:0 0 32px;">%s</h2>
%s
%s
</div>
</div>`, index, style, p.Text, esc(s.Heading), block, caption)

	default:
		return fmt.Sprintf(`<div class="slide" data-index="%d" style="%s"><p style="color:%s;">Slide %d</p></div>`, index, style, p.Text, index+1)
	}
}

// sideImage renders the right-hand user image column on bullets/content
// slides when the owner attached one.
func sideImage(url string, p palette) string {
	if url == "" {
		return ""
	}
	return fmt.Sprintf(`<div style="flex-shrink:0;width:320px;"><img src="%s" alt="Slide image" style="width:100%%;border-radius:12px;border:2px solid %s;object-fit:cover;max-height:400px;" /></div>`, esc(url), p.Border)
}

// Render turns a deck into one self-contained HTML document with an
// embedded navigation runtime. Pure and deterministic: the same deck and
// tier flag always produce identical bytes. Structurally valid input
// never fails; callers validate first.
func Render(d *Deck, pro bool) string {
	p := themePalette(d.Theme)
	total := len(d.Slides)

	var slidesHTML strings.Builder
	for i, s := range d.Slides {
		slidesHTML.WriteString(renderSlide(s, i, p))
		slidesHTML.WriteByte('\n')
	}

	title := d.Title
	if title == "" {
		title = "Presentation"
	}

	counter := fmt.Sprintf("1 / %d", total)
	if total == 0 {
		counter = "0 / 0"
	}

	watermark := ""
	if !pro {
		watermark = `<a id="watermark" href="https://speaktoslides.com" target="_blank" rel="noopener noreferrer">Made with speaktoslides.com</a>`
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>%s</title>
<style>
*, *::before, *::after { box-sizing:border-box; margin:0; padding:0; }
html, body { width:100%%; height:100%%; overflow:hidden; background:%s; font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif; }
#deck { position:fixed; inset:0; }
.slide { display:none; }
.slide.active { display:flex !important; }
.slide.active .bullet-item { opacity:1 !important; transform:translateX(0) !important; }
#controls {
  position:fixed; bottom:24px; left:50%%; transform:translateX(-50%%);
  display:flex; align-items:center; gap:12px;
  background:rgba(0,0,0,0.6); backdrop-filter:blur(10px);
  padding:10px 20px; border-radius:50px;
  border:1px solid %s; z-index:100;
}
.btn {
  background:%s; color:%s; border:1px solid %s;
  padding:8px 16px; border-radius:24px; cursor:pointer;
  font-size:0.85rem; font-weight:500; transition:all 0.2s; user-select:none;
}
.btn:hover { background:%s; border-color:%s; color:#fff; }
.btn:disabled { opacity:0.3; cursor:not-allowed; }
.btn.icon { padding:8px 12px; font-size:1rem; }
#slide-counter { color:%s; font-size:0.85rem; font-weight:500; min-width:60px; text-align:center; }
#progress { position:fixed; top:0; left:0; height:3px; background:%s; transition:width 0.3s ease; z-index:100; }
#fs-btn {
  position:fixed; top:16px; right:16px; z-index:100;
  background:rgba(0,0,0,0.5); border:1px solid %s;
  color:%s; padding:8px 12px; border-radius:8px;
  cursor:pointer; font-size:0.8rem; transition:all 0.2s; backdrop-filter:blur(10px);
}
#fs-btn:hover { color:%s; border-color:%s; }
#watermark {
  position:fixed; bottom:16px; right:16px; z-index:100;
  font-size:0.72rem; color:%s; opacity:0.6;
  font-weight:500; letter-spacing:0.01em;
  background:rgba(0,0,0,0.35); backdrop-filter:blur(6px);
  padding:5px 10px; border-radius:6px; border:1px solid %s;
  text-decoration:none; display:block; transition:opacity 0.2s;
}
#watermark:hover { opacity:1; }
.slide { animation:fadeIn 0.3s ease; }
@keyframes fadeIn { from { opacity:0; transform:translateY(8px); } to { opacity:1; transform:translateY(0); } }
#touch-prev, #touch-next { position:fixed; top:0; width:30%%; height:100%%; z-index:50; cursor:pointer; }
#touch-prev { left:0; }
#touch-next { right:0; }
@media (max-width:768px) {
  #controls { bottom:16px; padding:8px 14px; gap:8px; }
  .btn { padding:6px 12px; font-size:0.8rem; }
}
</style>
</head>
<body>

<div id="progress"></div>
%s
<button id="fs-btn" onclick="toggleFullscreen()">&#x26F6; Fullscreen</button>

<div id="deck">
%s</div>

<div id="touch-prev" onclick="prevSlide()"></div>
<div id="touch-next" onclick="nextSlide()"></div>

<div id="controls">
  <button class="btn icon" id="prev-btn" onclick="prevSlide()">&larr;</button>
  <span id="slide-counter">%s</span>
  <button class="btn icon" id="next-btn" onclick="nextSlide()">&rarr;</button>
</div>

<script>
var current = 0;
var total = %d;
var slides = document.querySelectorAll('.slide');
var startX = 0;

function showSlide(n) {
  if (n < 0 || n >= total) return;
  slides.forEach(function(s) { s.classList.remove('active'); });
  current = n;
  slides[current].classList.add('active');
  document.getElementById('slide-counter').textContent = (current + 1) + ' / ' + total;
  document.getElementById('prev-btn').disabled = current === 0;
  document.getElementById('next-btn').disabled = current === total - 1;
  document.getElementById('progress').style.width = ((current + 1) / total * 100) + '%%';
  try { window.parent.postMessage({ type: 'slideChange', index: current }, '*'); } catch(e) {}
}

function nextSlide() { showSlide(current + 1); }
function prevSlide() { showSlide(current - 1); }

function toggleFullscreen() {
  if (!document.fullscreenElement) {
    document.documentElement.requestFullscreen().catch(function(){});
    document.getElementById('fs-btn').textContent = '✕ Exit';
  } else {
    document.exitFullscreen();
    document.getElementById('fs-btn').textContent = '⛶ Fullscreen';
  }
}

document.addEventListener('keydown', function(e) {
  if (e.key === 'ArrowRight' || e.key === ' ' || e.key === 'ArrowDown') { e.preventDefault(); nextSlide(); }
  if (e.key === 'ArrowLeft' || e.key === 'ArrowUp') { e.preventDefault(); prevSlide(); }
  if (e.key === 'f' || e.key === 'F') toggleFullscreen();
  if (e.key === 'Escape' && document.fullscreenElement) document.exitFullscreen();
});

document.addEventListener('touchstart', function(e) {
  startX = e.touches[0].clientX;
}, { passive: true });

document.addEventListener('touchend', function(e) {
  var diff = startX - e.changedTouches[0].clientX;
  if (Math.abs(diff) > 50) {
    if (diff > 0) nextSlide(); else prevSlide();
  }
}, { passive: true });

if (document.readyState === 'loading') {
  document.addEventListener('DOMContentLoaded', function() { showSlide(0); });
} else {
  showSlide(0);
}
</script>
</body>
</html>`,
		esc(title), p.Bg, p.Border,
		p.Surface, p.Text, p.Border,
		p.Accent, p.Accent,
		p.TextMuted, p.Accent,
		p.Border, p.TextMuted, p.Text, p.Accent,
		p.TextMuted, p.Border,
		watermark, slidesHTML.String(), counter, total)
}
