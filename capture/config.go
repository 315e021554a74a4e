package capture

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/kr/pretty"
	"github.com/spf13/viper"

	"github.com/deckcast/deckcast/log"
)

type Cfg struct {
	FFmpegBinary string `json:"ffmpeg_binary" mapstructure:"ffmpeg_binary"`
	Input        string `json:"input" mapstructure:"input"`
	InputFormat  string `json:"input_format" mapstructure:"input_format"`
	VideoSize    string `json:"video_size" mapstructure:"video_size"`
	Framerate    int    `json:"framerate" mapstructure:"framerate"`
	VideoCodec   string `json:"video_codec" mapstructure:"video_codec"`
	Preset       string `json:"preset" mapstructure:"preset"`
	OutputFormat string `json:"output_format" mapstructure:"output_format"`
	LogDir       string `json:"log_dir" mapstructure:"log_dir"`
	LogMaxSize   int    `json:"log_max_size" mapstructure:"log_max_size"`
	LogMaxAge    int    `json:"log_max_age" mapstructure:"log_max_age"`
	LogBackups   int    `json:"log_backups" mapstructure:"log_backups"`
}

// default config, overridable through CAPTURE_* environment variables
var defaultCfg = Cfg{
	FFmpegBinary: "ffmpeg",
	Input:        ":0.0",
	InputFormat:  "x11grab",
	VideoSize:    "1280x800",
	Framerate:    30,
	VideoCodec:   "libx264",
	Preset:       "ultrafast",
	OutputFormat: "rtp",
	LogDir:       "",
	LogMaxSize:   100, // MB
	LogMaxAge:    7,   // days
	LogBackups:   3,
}

var Config Cfg

func init() {
	v := viper.New()
	b, _ := json.Marshal(defaultCfg)
	v.SetConfigType("json")
	v.ReadConfig(bytes.NewReader(b))

	v.SetEnvPrefix("capture")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	if err := v.Unmarshal(&Config); err != nil {
		Config = defaultCfg
	}
	log.Debug("capture configuration: \n", pretty.Sprint(Config))
}
