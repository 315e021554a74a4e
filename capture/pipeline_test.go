package capture

import (
	"fmt"
	"os"
	"strings"
	"testing"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}

func TestFFMpegCmd(t *testing.T) {
	stream := ffmpeg.Input(":0.0", ffmpeg.KwArgs{"f": "x11grab", "framerate": 30, "video_size": "1280x800"}).
		Output("rtp://10.0.0.5:7000", ffmpeg.KwArgs{"c:v": "libx264", "preset": "ultrafast", "f": "rtp"})
	stream = stream.GlobalArgs(strings.Split("-hide_banner -nostdin -nostats -loglevel error", " ")...)
	stream = stream.OverWriteOutput()
	fmt.Sprintln(stream.Compile().String())
}

func TestSessionDescriptionParse(t *testing.T) {
	raw := "v=0\r\n" +
		"o=- 0 0 IN IP4 127.0.0.1\r\n" +
		"s=No Name\r\n" +
		"c=IN IP4 10.0.0.5\r\n" +
		"t=0 0\r\n" +
		"m=video 7000 RTP/AVP 96\r\n" +
		"a=rtpmap:96 H264/90000\r\n"
	dir := t.TempDir()
	path := dir + "/ready.sdp"
	if err := writeFile(path, raw); err != nil {
		t.Fatal(err)
	}
	desc, err := readSessionDescription(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(desc.Media) != 1 || desc.Media[0].Type != "video" {
		t.Fatalf("unexpected media: %v", desc.Media)
	}
	if desc.Media[0].Port != 7000 {
		t.Fatalf("unexpected port: %d", desc.Media[0].Port)
	}
}
