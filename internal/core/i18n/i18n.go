// Package i18n resolves translation keys against embedded YAML catalogs.
//
// Catalogs are nested YAML documents flattened into dotted keys, so
//
//	RESULT:
//	  SUCCEEDED: "succeeded:"
//
// is looked up as "RESULT.SUCCEEDED". Values are text/template strings
// rendered with the placeholder map passed to T.
package i18n

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"text/template"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localesFS embed.FS

// DefaultLocale is used when no locale is configured or none matches.
const DefaultLocale = "en"

// Translator renders keys for one negotiated locale, falling back to the
// default locale and finally to the key itself.
type Translator struct {
	tag      language.Tag
	catalogs []map[string]string // negotiated locale first, then default

	mu        sync.Mutex
	templates map[string]*template.Template
}

// New loads the embedded catalogs and negotiates locale against them.
// Accepts BCP 47 tags ("de", "de-AT") and POSIX forms ("de_DE.UTF-8").
func New(locale string) (*Translator, error) {
	all, err := loadCatalogs(localesFS)
	if err != nil {
		return nil, err
	}

	tags := make([]language.Tag, 0, len(all))
	for tag := range all {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].String() < tags[j].String() })

	fallback := language.Make(DefaultLocale)
	if _, ok := all[fallback]; !ok {
		return nil, fmt.Errorf("default locale %q has no catalog", DefaultLocale)
	}

	tag := fallback
	if locale = normalize(locale); locale != "" {
		requested, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("parse locale %q: %w", locale, err)
		}
		// the first supported tag is what the matcher falls back to
		supported := append([]language.Tag{fallback}, tags...)
		_, idx, conf := language.NewMatcher(supported).Match(requested)
		if conf != language.No {
			tag = supported[idx]
		}
	}

	t := &Translator{
		tag:       tag,
		templates: make(map[string]*template.Template),
	}
	t.catalogs = append(t.catalogs, all[tag])
	if tag != fallback {
		t.catalogs = append(t.catalogs, all[fallback])
	}
	return t, nil
}

// Locale returns the negotiated locale.
func (t *Translator) Locale() string {
	return t.tag.String()
}

// Has reports whether key resolves in any loaded catalog.
func (t *Translator) Has(key string) bool {
	_, ok := t.lookup(key)
	return ok
}

// T renders key with vars. A missing key renders as the key itself, the same
// way i18next does, so gaps in a catalog stay visible instead of blank.
func (t *Translator) T(key string, vars map[string]string) string {
	raw, ok := t.lookup(key)
	if !ok {
		return key
	}
	if !strings.Contains(raw, "{{") {
		return raw
	}

	tmpl, err := t.template(raw)
	if err != nil {
		return raw
	}

	data := make(map[string]string, len(vars))
	for k, v := range vars {
		data[k] = v
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return raw
	}
	return buf.String()
}

func (t *Translator) lookup(key string) (string, bool) {
	for _, c := range t.catalogs {
		if v, ok := c[key]; ok {
			return v, true
		}
	}
	return "", false
}

func (t *Translator) template(raw string) (*template.Template, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if tmpl, ok := t.templates[raw]; ok {
		return tmpl, nil
	}
	tmpl, err := template.New("msg").Option("missingkey=zero").Parse(raw)
	if err != nil {
		return nil, err
	}
	t.templates[raw] = tmpl
	return tmpl, nil
}

// SupportedLocales lists the locales with an embedded catalog.
func SupportedLocales() []string {
	entries, err := fs.ReadDir(localesFS, "locales")
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".yaml"); ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// normalize turns POSIX locale strings into BCP 47 form.
func normalize(locale string) string {
	locale = strings.TrimSpace(locale)
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	if locale == "C" || locale == "POSIX" {
		return ""
	}
	return strings.ReplaceAll(locale, "_", "-")
}

func loadCatalogs(fsys fs.FS) (map[language.Tag]map[string]string, error) {
	entries, err := fs.ReadDir(fsys, "locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}

	out := make(map[language.Tag]map[string]string, len(entries))
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".yaml")
		if e.IsDir() || !ok {
			continue
		}

		tag, err := language.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", e.Name(), err)
		}

		data, err := fs.ReadFile(fsys, path.Join("locales", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", e.Name(), err)
		}

		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", e.Name(), err)
		}

		flat := make(map[string]string)
		flatten("", doc, flat)
		out[tag] = flat
	}
	return out, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}
