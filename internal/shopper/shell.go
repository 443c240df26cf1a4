// Package shopper is the line oriented storefront client. It drives the
// session gate, the catalog view-model and the search history from text
// commands.
package shopper

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/niksmo/storefront/internal/core/catalog"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/history"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/niksmo/storefront/internal/core/session"
)

var (
	errUsage   = errors.New("usage")
	errPrivate = errors.New("sign in with a verified account first")
	errQuit    = errors.New("quit")
)

// Account is the remote side of the shopper: identity and the calls that
// are not part of browsing.
type Account interface {
	port.IdentityStream
	SignUp(ctx context.Context, email, password, name string) (domain.Identity, error)
	SignIn(ctx context.Context, email, password string) (domain.Identity, error)
	SignOut(ctx context.Context) error
	Search(ctx context.Context, text string) ([]domain.Product, error)
	Popularity(ctx context.Context, term string) (int64, error)
	PlaceOrder(ctx context.Context, items []domain.OrderItem) (domain.Order, error)
	SaveProfile(ctx context.Context, p domain.Profile) error
}

type command struct {
	usage   string
	private bool
	run     func(ctx context.Context, args []string) error
}

type Shell struct {
	account Account
	gate    *session.Gate
	vm      *catalog.ViewModel
	history *history.History
	timeout time.Duration

	outMu sync.Mutex
	out   io.Writer

	commands map[string]command
	order    []string
}

func NewShell(
	account Account,
	gate *session.Gate,
	vm *catalog.ViewModel,
	hist *history.History,
	out io.Writer,
	timeout time.Duration,
) *Shell {
	s := &Shell{
		account: account,
		gate:    gate,
		vm:      vm,
		history: hist,
		timeout: timeout,
		out:     out,
	}
	s.register()
	return s
}

func (s *Shell) register() {
	s.commands = make(map[string]command)
	add := func(name, usage string, private bool, run func(context.Context, []string) error) {
		s.commands[name] = command{usage: usage, private: private, run: run}
		s.order = append(s.order, name)
	}

	add("help", "help", false, s.help)
	add("signup", "signup <email> <password> [name]", false, s.signUp)
	add("signin", "signin <email> <password>", false, s.signIn)
	add("signout", "signout", false, s.signOut)
	add("whoami", "whoami", false, s.whoami)
	add("load", "load", true, s.load)
	add("category", "category <name|All>", true, s.facet(domain.FacetCategory))
	add("brand", "brand <name|All>", true, s.facet(domain.FacetBrand))
	add("search", "search [text]", true, s.search)
	add("sort", "sort asc|desc|none", true, s.sort)
	add("filter", "filter [category=..] [brand=..] [price=min-max]", true, s.filter)
	add("find", "find <text>", true, s.find)
	add("history", "history [clear]", true, s.showHistory)
	add("popular", "popular <term>", true, s.popular)
	add("show", "show <id>", true, s.show)
	add("order", "order <id>:<size>:<qty>...", true, s.placeOrder)
	add("profile", "profile [name=..] [phone=..] [photo=..]", true, s.profile)
	add("quit", "quit", false, func(context.Context, []string) error { return errQuit })
}

// OnState reports session changes. It is meant for session.OnChangeOpt.
func (s *Shell) OnState(st session.State) {
	if st.Identity != nil {
		s.printf("session: %s (%s)\n", st.Mode, st.Identity.Email)
		return
	}
	s.printf("session: %s\n", st.Mode)
}

// Run executes commands from in until it is drained, ctx is done or the
// quit command is read.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	s.printf("> ")
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if err := s.Exec(ctx, line); errors.Is(err, errQuit) {
				return nil
			}
			s.printf("> ")
		}
	}
}

// Exec runs a single command line and prints its outcome.
func (s *Shell) Exec(ctx context.Context, line string) error {
	const op = "Shell.Exec"

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	name, args := strings.ToLower(fields[0]), fields[1:]
	cmd, ok := s.commands[name]
	if !ok {
		s.printf("unknown command %q, try help\n", name)
		return nil
	}

	if cmd.private && s.gate.Mode() != session.ModePrivate {
		s.printf("%s: %v\n", name, errPrivate)
		return nil
	}

	err := cmd.run(ctx, args)
	switch {
	case err == nil, errors.Is(err, errQuit):
		return err
	case errors.Is(err, errUsage):
		s.printf("usage: %s\n", cmd.usage)
	case errors.Is(err, domain.ErrSuperseded):
		slog.Debug("command result dropped", "op", op, "cmd", name)
	default:
		s.printf("%s: %v\n", name, err)
	}
	return nil
}

func (s *Shell) help(context.Context, []string) error {
	for _, name := range s.order {
		cmd := s.commands[name]
		mark := ""
		if cmd.private {
			mark = " *"
		}
		s.printf("  %s%s\n", cmd.usage, mark)
	}
	s.printf("  * needs a verified account\n")
	return nil
}

func (s *Shell) signUp(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	id, err := s.account.SignUp(ctx, args[0], args[1], strings.Join(args[2:], " "))
	if err != nil {
		return err
	}
	s.printf("account %s created, follow the link sent by email and sign in\n", id.Email)
	return nil
}

func (s *Shell) signIn(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.account.SignIn(ctx, args[0], args[1]); err != nil {
		return err
	}
	s.printf("signed in, checking the account\n")
	return nil
}

func (s *Shell) signOut(ctx context.Context, _ []string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.account.SignOut(ctx)
}

func (s *Shell) whoami(context.Context, []string) error {
	st := s.gate.State()
	if st.Identity == nil {
		s.printf("%s, nobody is signed in\n", st.Mode)
		return nil
	}
	id := st.Identity
	s.printf("%s %s uid=%s", st.Mode, id.Email, id.UID)
	if id.DisplayName != "" {
		s.printf(" name=%q", id.DisplayName)
	}
	s.printf("\n")
	return nil
}

func (s *Shell) load(ctx context.Context, _ []string) error {
	if err := s.vm.Load(ctx); err != nil {
		return err
	}
	s.printView()
	return nil
}

func (s *Shell) facet(kind domain.FacetKind) func(context.Context, []string) error {
	return func(_ context.Context, args []string) error {
		if len(args) == 0 {
			return errUsage
		}
		s.vm.SelectFacet(kind, strings.Join(args, " "))
		s.printView()
		return nil
	}
}

func (s *Shell) search(_ context.Context, args []string) error {
	s.vm.Search(strings.Join(args, " "))
	s.printView()
	return nil
}

func (s *Shell) sort(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	dir, err := domain.ParseSortDirection(args[0])
	if err != nil {
		return errUsage
	}
	s.vm.ApplySort(dir)
	s.printView()
	return nil
}

func (s *Shell) filter(ctx context.Context, args []string) error {
	var f domain.ProductFilter
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return errUsage
		}
		switch key {
		case "category":
			f.Category = value
		case "brand":
			f.Brand = value
		case "price":
			r, err := domain.ParsePriceRange(value)
			if err != nil {
				return err
			}
			f.Price = &r
		default:
			return errUsage
		}
	}

	if err := s.vm.ApplyAdvancedFilter(ctx, f); err != nil {
		return err
	}
	s.printView()
	return nil
}

// find runs the remote search and remembers the term.
func (s *Shell) find(ctx context.Context, args []string) error {
	const op = "Shell.find"

	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" {
		return errUsage
	}

	rctx, cancel := s.withTimeout(ctx)
	ps, err := s.account.Search(rctx, text)
	cancel()
	if err != nil {
		return err
	}

	if _, err := s.history.Save(ctx, text); err != nil {
		slog.Warn("failed to save search term", "op", op, "err", err)
	}

	s.printProducts(ps)
	return nil
}

func (s *Shell) showHistory(ctx context.Context, args []string) error {
	switch {
	case len(args) == 1 && args[0] == "clear":
		if err := s.history.Clear(ctx); err != nil {
			return err
		}
		s.printf("history cleared\n")
		return nil
	case len(args) != 0:
		return errUsage
	}

	terms, err := s.history.Load(ctx)
	if err != nil {
		return err
	}
	if len(terms) == 0 {
		s.printf("no recent searches\n")
		return nil
	}
	for i, term := range terms {
		s.printf("%d. %s\n", i+1, term)
	}
	return nil
}

func (s *Shell) popular(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	term := strings.Join(args, " ")
	n, err := s.account.Popularity(ctx, term)
	if err != nil {
		return err
	}
	s.printf("%q searched %d times\n", domain.NormalizeTerm(term), n)
	return nil
}

func (s *Shell) show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}

	p, err := s.vm.Detail(ctx, args[0])
	if err != nil {
		return err
	}

	s.printf("%s\n  %s / %s  $%.2f  rating %.1f\n", p.Name, p.Category, p.Brand, p.Amount, p.Rating)
	if p.Description != "" {
		s.printf("  %s\n", p.Description)
	}
	if len(p.Variants) != 0 {
		sizes := make([]string, len(p.Variants))
		for i, v := range p.Variants {
			sizes[i] = v.Size
		}
		s.printf("  sizes: %s\n", strings.Join(sizes, ", "))
	}
	if img, ok := p.PrimaryImage(); ok {
		s.printf("  image: %s\n", img.Path)
	} else {
		s.printf("  image: none\n")
	}
	return nil
}

func (s *Shell) placeOrder(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	items := make([]domain.OrderItem, 0, len(args))
	for _, arg := range args {
		it, err := parseOrderItem(arg)
		if err != nil {
			return err
		}
		items = append(items, it)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	o, err := s.account.PlaceOrder(ctx, items)
	if err != nil {
		return err
	}

	s.printf("order %s placed\n", o.ID)
	for _, it := range o.Items {
		s.printf("  %d x %s %s  $%.2f\n", it.Quantity, it.Name, it.Size, it.Amount)
	}
	sum := o.Summary
	s.printf("  total $%.2f, discount $%.2f, delivery $%.2f, to pay $%.2f\n",
		sum.Total, sum.Discount, sum.DeliveryFee, sum.Sum)
	return nil
}

// parseOrderItem reads id:size:qty. The size may be empty.
func parseOrderItem(arg string) (domain.OrderItem, error) {
	parts := strings.Split(arg, ":")
	if len(parts) != 3 || parts[0] == "" {
		return domain.OrderItem{}, errUsage
	}
	qty, err := strconv.Atoi(parts[2])
	if err != nil || qty <= 0 {
		return domain.OrderItem{}, fmt.Errorf("%w: quantity %q", domain.ErrInvalidArgument, parts[2])
	}
	return domain.OrderItem{ProductID: parts[0], Size: parts[1], Quantity: qty}, nil
}

func (s *Shell) profile(ctx context.Context, args []string) error {
	id := s.gate.Identity()
	if id == nil {
		return errPrivate
	}

	p := id.Profile()
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return errUsage
		}
		switch key {
		case "name":
			p.Name = value
		case "phone":
			p.Phone = value
		case "photo":
			p.PhotoURL = value
		default:
			return errUsage
		}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.account.SaveProfile(ctx, p); err != nil {
		return err
	}
	s.printf("profile saved\n")
	return nil
}

func (s *Shell) printView() {
	v := s.vm.Snapshot()

	f := v.Filter
	s.printf("[%s] category=%s brand=%s sort=%s", v.Status, f.Category, f.Brand, f.Sort)
	if f.SearchText != "" {
		s.printf(" search=%q", f.SearchText)
	}
	if f.Advanced != nil {
		s.printf(" advanced")
	}
	s.printf("\n")

	if v.Status == catalog.StatusFailed {
		s.printf("failed: %v\n", v.Err)
		return
	}
	s.printProducts(v.Items)
}

func (s *Shell) printProducts(ps []domain.Product) {
	if len(ps) == 0 {
		s.printf("no products\n")
		return
	}
	for _, p := range ps {
		s.printf("  %-16s %-28s %-10s %-10s $%.2f\n", p.ID, p.Name, p.Brand, p.Category, p.Amount)
	}
}

func (s *Shell) printf(format string, args ...any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

func (s *Shell) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}
