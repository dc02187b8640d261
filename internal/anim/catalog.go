// Package anim describes the sprite sheets available to agents and tracks the
// per-agent animation cursor.
package anim

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

const (
	// VariantStand is the standing sheet, suffix "S" on the sprite name.
	VariantStand = "S"
	// VariantWalk is the walking sheet, suffix "G" on the sprite name.
	VariantWalk = "G"
)

var (
	ErrUnknownSprite = errors.New("anim: unknown sprite")
	ErrInvalidSprite = errors.New("anim: invalid sprite")
)

// Sprite is one frame strip of a character.
type Sprite struct {
	Name   string `json:"name"`
	Frames int    `json:"frames"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Catalog maps characters to their variants. It is filled while a scenario is
// loaded and read concurrently afterwards.
type Catalog struct {
	mu         sync.RWMutex
	characters map[string]map[string]Sprite
}

func NewCatalog() *Catalog {
	return &Catalog{characters: make(map[string]map[string]Sprite)}
}

// Register adds or replaces the variant of a character.
func (c *Catalog) Register(character, variant string, frames, width, height int) error {
	character = strings.TrimSpace(character)
	variant = strings.TrimSpace(variant)
	if character == "" || variant == "" {
		return fmt.Errorf("%w: character and variant are required", ErrInvalidSprite)
	}
	if frames <= 0 {
		return fmt.Errorf("%w: %s%s has %d frames", ErrInvalidSprite, character, variant, frames)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	variants, ok := c.characters[character]
	if !ok {
		variants = make(map[string]Sprite)
		c.characters[character] = variants
	}
	variants[variant] = Sprite{Name: character + variant, Frames: frames, Width: width, Height: height}
	return nil
}

// Lookup returns the sprite for a character variant.
func (c *Catalog) Lookup(character, variant string) (Sprite, bool) {
	if c == nil {
		return Sprite{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	sprite, ok := c.characters[character][variant]
	return sprite, ok
}

// Characters lists the registered characters in lexical order.
func (c *Catalog) Characters() []string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.characters))
	for name := range c.characters {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// NewState positions a cursor on the first frame of a character variant.
func (c *Catalog) NewState(character, variant string) (State, error) {
	sprite, ok := c.Lookup(character, variant)
	if !ok {
		return State{}, fmt.Errorf("%w: %s%s", ErrUnknownSprite, character, variant)
	}
	return State{
		Character:  character,
		Variant:    variant,
		SpriteName: sprite.Name,
		FrameCount: sprite.Frames,
	}, nil
}

// Switch moves state onto another variant of the same character. Unknown
// variants leave state untouched and report false.
func (c *Catalog) Switch(state *State, variant string) bool {
	if state == nil {
		return false
	}
	if state.Variant == variant && state.FrameCount > 0 {
		return true
	}
	sprite, ok := c.Lookup(state.Character, variant)
	if !ok {
		return false
	}
	state.Variant = variant
	state.SpriteName = sprite.Name
	state.FrameCount = sprite.Frames
	state.FrameIndex = 0
	return true
}
