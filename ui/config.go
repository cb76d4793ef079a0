package ui

// Config holds the host window settings.
type Config struct {
	Title string // Window title.
	Scale int    // Window pixels per framebuffer pixel.
	Mute  bool   // Disable the beeper.
}

// Defaults fills in unset fields.
func (cfg *Config) Defaults() {
	if len(cfg.Title) == 0 {
		cfg.Title = "chip8"
	}
	if cfg.Scale <= 0 {
		cfg.Scale = 8
	}
}
