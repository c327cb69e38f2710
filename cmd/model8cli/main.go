package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"model8cli/internal/adapter/llm"
	"model8cli/internal/adapter/tool"
	"model8cli/internal/domain"
	"model8cli/internal/infra/config"
	"model8cli/internal/infra/logger"
	"model8cli/internal/infra/tracer"
	"model8cli/internal/usecase"
	"model8cli/internal/usecase/workflow"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		}
	}

	cmd := "chat"
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd = args[0]
		args = args[1:]
	}

	var err error
	switch cmd {
	case "chat":
		err = runChat(args)
	case "ask":
		err = runAsk(args)
	case "models":
		err = runModels(args)
	case "tools":
		err = runTools(args)
	case "workflow":
		err = runWorkflow(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'model8cli --help' for usage information.\n", cmd)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`model8cli - multi-provider AI agent for the terminal

USAGE:
    model8cli [COMMAND] [FLAGS]

COMMANDS:
    chat        Interactive chat session (default)
    ask         One-shot question, prints the answer and exits
    models      List available models
    tools       List registered tools and usage statistics
    workflow    Run and manage workflows
                Subcommands: run, list, show

FLAGS:
    -h, --help         Show this help message
    --config PATH      Config file path (default: ~/.model8cli/config.yaml)
    --model NAME       Model id; prefix with ollama/ or groq/ to pick a route

EXAMPLES:
    model8cli                                # chat with the default model
    model8cli --model groq/llama-3.3-70b-versatile
    model8cli ask "summarize go.mod"
    model8cli workflow run git_feature_workflow feature_name=login
    model8cli workflow list`)
}

// app holds the wired component graph shared by all subcommands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *tool.Registry
	router   *llm.Router
	ollama   *llm.OllamaProvider
	engine   *workflow.Engine
	store    *workflow.FileStore
	close    func()
}

func newApp(configPath, model string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if model != "" {
		cfg.LLM.DefaultModel = model
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log)

	shutdownTracer, err := tracer.Setup(context.Background(), cfg.Tracer)
	if err != nil {
		closeLog()
		return nil, err
	}

	registry := tool.NewRegistry(log)

	fileTools, err := tool.NewFileTools(cfg.Tools)
	if err != nil {
		closeLog()
		return nil, err
	}
	for _, t := range fileTools {
		registry.Register(t)
	}
	for _, t := range tool.NewSystemTools(cfg.Tools) {
		registry.Register(t)
	}
	for _, t := range tool.NewWebTools(cfg.Tools) {
		registry.Register(t)
	}
	for _, t := range tool.NewGitTools() {
		registry.Register(t)
	}
	for _, t := range tool.NewGitHubTools(cfg.Tools) {
		registry.Register(t)
	}

	knowledgeTools, knowledgeStore, err := tool.NewKnowledgeTools(cfg.Tools)
	if err != nil {
		log.Warn("knowledge tools unavailable", "error", err)
	} else {
		for _, t := range knowledgeTools {
			registry.Register(t)
		}
	}

	store, err := workflow.NewFileStore(cfg.Workflow.Dir)
	if err != nil {
		closeLog()
		return nil, err
	}
	engine := workflow.NewEngine(registry, cfg.Workflow.StepTimeout, log)
	for _, t := range workflow.NewWorkflowTools(engine, store) {
		registry.Register(t)
	}

	ollama := llm.NewOllamaProvider(cfg.LLM.Ollama, log)

	var hosted, groq domain.ChatProvider
	hosted = llm.NewOpenRouterProvider(cfg.LLM, log)
	groq = llm.NewGroqProvider(cfg.LLM, log)
	if cfg.LLM.CircuitBreaker.Enabled {
		hosted = llm.NewCircuitBreakerProvider(hosted, cfg.LLM.CircuitBreaker, log)
		groq = llm.NewCircuitBreakerProvider(groq, cfg.LLM.CircuitBreaker, log)
	}

	router := llm.NewRouter(hosted, groq, ollama, cfg.LLM.DefaultModel, log)

	return &app{
		cfg:      cfg,
		logger:   log,
		registry: registry,
		router:   router,
		ollama:   ollama,
		engine:   engine,
		store:    store,
		close: func() {
			if knowledgeStore != nil {
				knowledgeStore.Close()
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownTracer(ctx)
			closeLog()
		},
	}, nil
}

func commonFlags(fs *flag.FlagSet) (configPath, model *string) {
	configPath = fs.String("config", "", "config file path")
	model = fs.String("model", "", "model id")
	return
}

func newAgent(a *app) *usecase.Agent {
	return usecase.NewAgent(usecase.AgentDeps{
		Completer:     a.router,
		Tools:         a.registry,
		Approver:      &stdinApprover{tools: a.registry},
		Logger:        a.logger,
		Model:         a.cfg.LLM.DefaultModel,
		SystemPrompt:  a.cfg.Agent.SystemPrompt,
		MaxIterations: a.cfg.Agent.MaxIterations,
		Temperature:   a.cfg.Agent.Temperature,
		MaxTokens:     a.cfg.Agent.MaxTokens,
	})
}

func runChat(args []string) error {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	configPath, model := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*configPath, *model)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	agent := newAgent(a)
	session := usecase.NewSession(a.cfg.Agent.SystemPrompt)

	fmt.Printf("model8cli - model %s (type 'exit' to quit)\n", a.cfg.LLM.DefaultModel)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return nil
		}

		reply, err := agent.HandleMessage(ctx, session, input)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println(reply)
	}
}

func runAsk(args []string) error {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath, model := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: model8cli ask [flags] <question>")
	}

	a, err := newApp(*configPath, *model)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	agent := newAgent(a)
	session := usecase.NewSession(a.cfg.Agent.SystemPrompt)

	reply, err := agent.HandleMessage(ctx, session, strings.Join(fs.Args(), " "))
	if err != nil {
		return err
	}
	fmt.Println(reply)
	return nil
}

func runModels(args []string) error {
	fs := flag.NewFlagSet("models", flag.ExitOnError)
	configPath, model := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*configPath, *model)
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Printf("Default: %s\n\n", a.cfg.LLM.DefaultModel)

	fmt.Println("Groq models (route with groq/ prefix or bare id):")
	for _, id := range llm.GroqModelIDs() {
		fmt.Printf("  %s\n", id)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fmt.Println("\nLocal models (route with ollama/ prefix):")
	if !a.ollama.IsAvailable(ctx) {
		fmt.Println("  (ollama server not reachable)")
		return nil
	}
	for _, m := range a.ollama.ListModels(ctx) {
		fmt.Printf("  %s (%.1f GB)\n", m.Name, float64(m.Size)/1e9)
	}
	return nil
}

func runTools(args []string) error {
	fs := flag.NewFlagSet("tools", flag.ExitOnError)
	configPath, model := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*configPath, *model)
	if err != nil {
		return err
	}
	defer a.close()

	for _, s := range a.registry.Stats() {
		state := ""
		if !s.Enabled {
			state = " [disabled]"
		}
		fmt.Printf("%-24s %-16s runs=%d errors=%d%s\n", s.Name, s.Category, s.ExecutionCount, s.ErrorCount, state)
	}
	return nil
}

func runWorkflow(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: model8cli workflow <run|list|show> [args]")
	}
	sub := args[0]
	args = args[1:]

	fs := flag.NewFlagSet("workflow", flag.ExitOnError)
	configPath, model := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*configPath, *model)
	if err != nil {
		return err
	}
	defer a.close()

	switch sub {
	case "list":
		saved, err := a.store.List()
		if err != nil {
			return err
		}
		fmt.Println("Templates:")
		for _, name := range workflow.TemplateNames() {
			fmt.Printf("  %s\n", name)
		}
		fmt.Println("Saved:")
		for _, id := range saved {
			fmt.Printf("  %s\n", id)
		}
		return nil

	case "show":
		if fs.NArg() == 0 {
			return fmt.Errorf("usage: model8cli workflow show <id>")
		}
		wf, err := a.store.Load(fs.Arg(0))
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(wf, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil

	case "run":
		if fs.NArg() == 0 {
			return fmt.Errorf("usage: model8cli workflow run <name> [key=value ...]")
		}
		name := fs.Arg(0)
		variables := map[string]any{}
		for _, pair := range fs.Args()[1:] {
			key, value, ok := strings.Cut(pair, "=")
			if !ok {
				return fmt.Errorf("variable %q must be key=value", pair)
			}
			variables[key] = value
		}

		wf, err := a.store.Load(name)
		if err != nil {
			if wf, err = workflow.FromTemplate(name, variables); err != nil {
				return fmt.Errorf("no saved workflow or template named %q", name)
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		wf = a.engine.Execute(ctx, wf, variables)

		fmt.Printf("Workflow %s: %s\n", wf.ID, wf.Status)
		for _, step := range wf.Steps {
			line := fmt.Sprintf("  %-24s %s", step.Name, step.Status)
			if step.Error != "" {
				line += " (" + step.Error + ")"
			}
			fmt.Println(line)
		}
		if wf.Status != domain.WorkflowCompleted {
			return fmt.Errorf("workflow finished with status %s", wf.Status)
		}
		return nil

	default:
		return fmt.Errorf("unknown workflow subcommand: %s", sub)
	}
}

// stdinApprover asks for confirmation on the terminal before a gated tool
// call runs.
type stdinApprover struct {
	tools domain.ToolExecutor
}

func (s *stdinApprover) NeedsApproval(call domain.ToolCall) bool {
	t, ok := s.tools.Get(call.Function.Name)
	if !ok {
		return false
	}
	return t.RequiresConfirmation() || t.Dangerous()
}

func (s *stdinApprover) RequestApproval(ctx context.Context, call domain.ToolCall) (bool, error) {
	fmt.Printf("Allow tool call %s(%s)? [y/N] ", call.Function.Name, call.Function.Arguments)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
