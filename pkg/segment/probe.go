package segment

import (
	"bufio"
	"bytes"
	"errors"
	"io"

	"github.com/pion/webrtc/v3/pkg/media/oggreader"

	"github.com/haivivi/audioseg/pkg/audio/ogg"
	"github.com/haivivi/audioseg/pkg/audio/pcm"
	"github.com/haivivi/audioseg/pkg/audio/wav"
)

// probeSize covers the first Ogg page of common codecs and a WAV header.
const probeSize = 128

// Probe classifies src by its leading bytes. The returned reader yields
// the complete source, including the bytes that were inspected.
//
// Bare MPEG frame sync is not treated as a signature: raw PCM matches it
// too often.
func Probe(src io.Reader) (Descriptor, io.Reader, error) {
	br := bufio.NewReaderSize(src, 4096)
	head, err := br.Peek(probeSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return Descriptor{}, nil, readErr(err)
	}
	return sniff(head), br, nil
}

func sniff(head []byte) Descriptor {
	switch {
	case len(head) >= 12 && string(head[0:4]) == "RIFF" && string(head[8:12]) == "WAVE":
		d := Descriptor{Kind: WAV}
		if h, err := wav.ParseHeader(head); err == nil {
			d.Format = h.Format()
		}
		return d
	case bytes.HasPrefix(head, []byte("OggS")):
		return sniffOgg(head)
	case len(head) >= 8 && string(head[4:8]) == "ftyp":
		return Descriptor{Kind: Encoded, Codec: "mp4"}
	case bytes.HasPrefix(head, []byte("ID3")):
		return Descriptor{Kind: Encoded, Codec: "mp3"}
	}
	return Descriptor{Kind: RawPCM}
}

func sniffOgg(head []byte) Descriptor {
	d := Descriptor{Kind: Encoded, Codec: ogg.CodecUnknown}
	if _, h, err := oggreader.NewWith(bytes.NewReader(head)); err == nil {
		d.Codec = ogg.CodecOpus
		d.Format = pcm.Format{SampleRate: int(h.SampleRate), Channels: int(h.Channels)}
		return d
	}
	p, err := ogg.ReadPage(bytes.NewReader(head))
	if err != nil {
		return d
	}
	switch {
	case bytes.HasPrefix(p.Body, []byte("\x01vorbis")):
		d.Codec = ogg.CodecVorbis
	case bytes.HasPrefix(p.Body, []byte("\x7fFLAC")):
		d.Codec = ogg.CodecFLAC
	}
	return d
}
