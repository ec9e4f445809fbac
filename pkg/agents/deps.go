package agents

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/germanamz/agentry/pkg/toolkits/docio"
	"github.com/germanamz/agentry/pkg/toolkits/mathtools"
	"github.com/germanamz/agentry/pkg/toolkits/planning"
	"github.com/germanamz/agentry/pkg/toolkits/regex"
	"github.com/germanamz/agentry/pkg/toolkits/repl"
	"github.com/germanamz/agentry/pkg/toolkits/scrape"
	"github.com/germanamz/agentry/pkg/toolkits/summarytools"
	"github.com/germanamz/agentry/pkg/toolkits/websearch"
	"github.com/germanamz/agentry/pkg/tools/toolbox"
)

// Toolkit names a tool set an agent can be built with.
type Toolkit string

// Toolkits.
const (
	Math         Toolkit = "math"
	MathBasic    Toolkit = "math_basic"
	Regex        Toolkit = "regex"
	REPL         Toolkit = "repl"
	DocRead      Toolkit = "doc_read"
	DocOutline   Toolkit = "doc_outline"
	DocWrite     Toolkit = "doc_write"
	Scrape       Toolkit = "scrape"
	WebSearch    Toolkit = "websearch"
	Planning     Toolkit = "planning"
	SummaryTools Toolkit = "summarytools"
)

// ErrUnknownToolkit is returned for a toolkit name not listed above.
var ErrUnknownToolkit = errors.New("agents: unknown toolkit")

// basicMath is the arithmetic subset given to data analysis.
var basicMath = []string{
	mathtools.Add, mathtools.Subtract, mathtools.Multiply, mathtools.Divide,
	mathtools.Average, mathtools.Round,
}

// Deps carries the resources toolkits are built from. The zero value works
// for toolkits that need nothing; a Deps shared by several agents also shares
// the document store and the Python session.
type Deps struct {
	// WorkDir roots the document and regex tools (default ".").
	WorkDir string
	// Session backs the REPL tools. When nil a python3 session is started
	// on first use and closed by Close.
	Session repl.Session
	// Search holds the web search credentials.
	Search websearch.Config
	// HTTPClient is used by the scraper. Nil means a client that refuses
	// private addresses.
	HTTPClient *http.Client
	Logger     *slog.Logger

	mu        sync.Mutex
	docs      *docio.Docs
	ownedRepl repl.Session
}

func (d *Deps) workDir() string {
	if d.WorkDir == "" {
		return "."
	}
	return d.WorkDir
}

func (d *Deps) session() repl.Session {
	if d.Session != nil {
		return d.Session
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ownedRepl == nil {
		d.ownedRepl = repl.NewPython(repl.PythonOptions{Dir: d.workDir(), Logger: d.Logger})
	}
	return d.ownedRepl
}

func (d *Deps) documents() (*docio.Docs, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.docs == nil {
		docs, err := docio.New(d.workDir())
		if err != nil {
			return nil, fmt.Errorf("agents: %w", err)
		}
		d.docs = docs
	}
	return d.docs, nil
}

// ToolBox builds the tools for a toolkit.
func (d *Deps) ToolBox(tk Toolkit) (*toolbox.ToolBox, error) {
	switch tk {
	case Math:
		return mathtools.Tools(), nil
	case MathBasic:
		return mathtools.Tools().Filter(basicMath...), nil
	case Regex:
		return regex.New(d.workDir()).Tools(), nil
	case REPL:
		return repl.New(d.session()).Tools(), nil
	case DocRead, DocOutline, DocWrite:
		docs, err := d.documents()
		if err != nil {
			return nil, err
		}
		return docs.Tools().Filter(docTools[tk]...), nil
	case Scrape:
		return scrape.New(scrape.Options{Client: d.HTTPClient}).Tools(), nil
	case WebSearch:
		s, err := websearch.New(d.Search)
		if err != nil {
			return nil, err
		}
		return s.Tools(), nil
	case Planning:
		return planning.New().Tools(), nil
	case SummaryTools:
		return summarytools.Tools(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownToolkit, tk)
	}
}

var docTools = map[Toolkit][]string{
	DocRead:    {docio.ReadDocument},
	DocOutline: {docio.CreateOutline},
	DocWrite:   {docio.WriteDocument, docio.EditDocument},
}

// Close stops the Python session started by Deps, if any. A caller-supplied
// Session is left alone.
func (d *Deps) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ownedRepl == nil {
		return nil
	}

	err := d.ownedRepl.Close()
	d.ownedRepl = nil
	return err
}
