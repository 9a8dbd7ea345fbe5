package config

import "flag"

// BindFlags registers the command line overrides on fs. Flag defaults are the
// environment-derived values already held by c, so a flag only wins when set.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.Server.Port, "port", c.Server.Port, "server port")
	fs.StringVar(&c.Server.Host, "host", c.Server.Host, "server host")
	fs.StringVar(&c.TTS.Model, "model", c.TTS.Model, "TTS model name")
	fs.StringVar(&c.TTS.Backend, "backend", c.TTS.Backend, "TTS backend (piper or openai)")
	fs.StringVar(&c.TTS.ModelDir, "model-dir", c.TTS.ModelDir, "directory holding piper voice models")
}
