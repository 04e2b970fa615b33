package server

import (
	"fmt"
	"sync"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	"palworld-save-edit/palworld"
)

// filterCache compiles ?where= expressions once and keeps the programs.
type filterCache struct {
	mu       sync.RWMutex
	programs map[string]*exprvm.Program
	limit    int
}

func newFilterCache(limit int) *filterCache {
	return &filterCache{programs: map[string]*exprvm.Program{}, limit: limit}
}

func (c *filterCache) compile(expression string) (*exprvm.Program, error) {
	c.mu.RLock()
	program, ok := c.programs[expression]
	c.mu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := exprlang.Compile(expression,
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", expression, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.programs) >= c.limit {
		c.programs = map[string]*exprvm.Program{}
	}
	c.programs[expression] = program
	return program, nil
}

func match(program *exprvm.Program, env map[string]any) (bool, error) {
	out, err := exprlang.Run(program, env)
	if err != nil {
		return false, err
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, fmt.Errorf("filter returned %T, want bool", out)
	}
	return ok, nil
}

func playerEnv(p palworld.Player) map[string]any {
	return map[string]any{
		"uid":      p.UID.String(),
		"nickname": p.Nickname,
		"level":    p.Level,
		"pals":     len(p.Pals),
	}
}

func palEnv(p palworld.Pal) map[string]any {
	nickname := ""
	if p.Nickname != nil {
		nickname = *p.Nickname
	}
	return map[string]any{
		"instance_id":  p.InstanceID.String(),
		"character_id": p.CharacterID,
		"nickname":     nickname,
		"has_nickname": p.Nickname != nil,
		"level":        p.Level,
	}
}

func (c *filterCache) players(expression string, players []palworld.Player) ([]palworld.Player, error) {
	if expression == "" {
		return players, nil
	}
	program, err := c.compile(expression)
	if err != nil {
		return nil, err
	}
	out := []palworld.Player{}
	for _, p := range players {
		ok, err := match(program, playerEnv(p))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *filterCache) pals(expression string, pals []palworld.Pal) ([]palworld.Pal, error) {
	if expression == "" {
		return pals, nil
	}
	program, err := c.compile(expression)
	if err != nil {
		return nil, err
	}
	out := []palworld.Pal{}
	for _, p := range pals {
		ok, err := match(program, palEnv(p))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}
