package zeng

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/awksedgreep/go-openzl/engine"
)

func TestVersionFormat(t *testing.T) {
	v := New().Version()
	if len(strings.Split(v, ".")) != 3 {
		t.Errorf("Version() = %q, want major.minor.patch", v)
	}
}

func TestSerialRoundTrip(t *testing.T) {
	eng := New()
	cctx, err := eng.NewCCtx()
	if err != nil {
		t.Fatalf("NewCCtx: %v", err)
	}
	defer cctx.Close()
	dctx, err := eng.NewDCtx()
	if err != nil {
		t.Fatalf("NewDCtx: %v", err)
	}
	defer dctx.Close()

	src := bytes.Repeat([]byte("typed frame payload "), 100)
	dst := make([]byte, eng.CompressBound(len(src)))
	n, err := cctx.Compress(dst, src)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	frame := dst[:n]

	size, err := eng.FrameDecompressedSize(frame)
	if err != nil {
		t.Fatalf("FrameDecompressedSize: %v", err)
	}
	if size != len(src) {
		t.Fatalf("FrameDecompressedSize = %d, want %d", size, len(src))
	}

	out := make([]byte, size)
	m, err := dctx.Decompress(out, frame)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(out[:m], src) {
		t.Error("round trip mismatch")
	}
}

func TestCompressDestinationTooSmall(t *testing.T) {
	eng := New()
	cctx, _ := eng.NewCCtx()
	defer cctx.Close()

	src := bytes.Repeat([]byte{0xAB}, 1000)
	if _, err := cctx.Compress(make([]byte, 4), src); err == nil {
		t.Fatal("Compress into 4-byte dst succeeded, want error")
	} else if !strings.Contains(err.Error(), "too small") {
		t.Errorf("error = %v, want destination too small", err)
	}
}

func TestSetParameterLevelRange(t *testing.T) {
	tests := []struct {
		level   int
		wantErr bool
	}{
		{0, true},
		{1, false},
		{19, false},
		{20, true},
		{-3, true},
	}

	cctx, _ := New().NewCCtx()
	defer cctx.Close()
	for _, tt := range tests {
		err := cctx.SetParameter(engine.ParamCompressionLevel, tt.level)
		if (err != nil) != tt.wantErr {
			t.Errorf("SetParameter(level, %d) = %v, wantErr %v", tt.level, err, tt.wantErr)
		}
		if err != nil && !strings.Contains(err.Error(), "out of range") {
			t.Errorf("SetParameter(level, %d) = %v, want out-of-range message", tt.level, err)
		}
	}
}

func TestStickyParameters(t *testing.T) {
	eng := New()
	raw, _ := eng.NewCCtx()
	c := raw.(*cctx)
	defer c.Close()

	if err := c.SetParameter(engine.ParamStickyParameters, 1); err != nil {
		t.Fatalf("SetParameter(sticky): %v", err)
	}
	if err := c.SetParameter(engine.ParamCompressionLevel, 19); err != nil {
		t.Fatalf("SetParameter(level): %v", err)
	}

	src := []byte("sticky")
	dst := make([]byte, eng.CompressBound(len(src)))
	if _, err := c.Compress(dst, src); err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if c.level != 19 {
		t.Errorf("level after sticky compress = %d, want 19", c.level)
	}

	// Without sticky parameters the level resets after the call.
	if err := c.SetParameter(engine.ParamStickyParameters, 0); err != nil {
		t.Fatalf("SetParameter(sticky off): %v", err)
	}
	if _, err := c.Compress(dst, src); err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if c.level != defaultLevel {
		t.Errorf("level after non-sticky compress = %d, want default %d", c.level, defaultLevel)
	}
}

func TestTypedMultiRoundTrip(t *testing.T) {
	eng := New()
	cctx, _ := eng.NewCCtx()
	defer cctx.Close()
	dctx, _ := eng.NewDCtx()
	defer dctx.Close()

	numeric := make([]byte, 800)
	for i := 0; i < 100; i++ {
		binary.LittleEndian.PutUint64(numeric[i*8:], uint64(1000+i))
	}
	numRef, err := eng.NewTypedRef(engine.KindNumeric, numeric, 8, nil)
	if err != nil {
		t.Fatalf("NewTypedRef(numeric): %v", err)
	}
	strData := []byte("alphabetagamma")
	strRef, err := eng.NewTypedRef(engine.KindString, strData, 0, []uint32{5, 4, 5})
	if err != nil {
		t.Fatalf("NewTypedRef(string): %v", err)
	}

	dst := make([]byte, eng.CompressBound(len(numeric)+len(strData)+4*3))
	n, err := cctx.CompressTyped(dst, []*engine.TypedRef{numRef, strRef})
	if err != nil {
		t.Fatalf("CompressTyped: %v", err)
	}
	frame := dst[:n]

	count, err := eng.FrameOutputCount(frame)
	if err != nil {
		t.Fatalf("FrameOutputCount: %v", err)
	}
	if count != 2 {
		t.Fatalf("FrameOutputCount = %d, want 2", count)
	}

	bufs := []*engine.TypedBuffer{{}, {}}
	if err := dctx.DecompressTyped(bufs, frame); err != nil {
		t.Fatalf("DecompressTyped: %v", err)
	}

	if bufs[0].Kind != engine.KindNumeric || bufs[0].EltWidth != 8 || bufs[0].NumElts != 100 {
		t.Errorf("numeric shape = %v/%d/%d", bufs[0].Kind, bufs[0].EltWidth, bufs[0].NumElts)
	}
	if !bytes.Equal(bufs[0].Data, numeric) {
		t.Error("numeric payload mismatch")
	}
	if bufs[1].Kind != engine.KindString || bufs[1].NumElts != 3 {
		t.Errorf("string shape = %v/%d", bufs[1].Kind, bufs[1].NumElts)
	}
	if !bytes.Equal(bufs[1].Data, strData) {
		t.Error("string payload mismatch")
	}
	if len(bufs[1].Lengths) != 3 || bufs[1].Lengths[0] != 5 || bufs[1].Lengths[1] != 4 || bufs[1].Lengths[2] != 5 {
		t.Errorf("string lengths = %v, want [5 4 5]", bufs[1].Lengths)
	}
}

func TestDecompressTypedBufferCountMismatch(t *testing.T) {
	eng := New()
	cctx, _ := eng.NewCCtx()
	defer cctx.Close()
	dctx, _ := eng.NewDCtx()
	defer dctx.Close()

	ref, _ := eng.NewTypedRef(engine.KindNumeric, make([]byte, 16), 4, nil)
	dst := make([]byte, eng.CompressBound(16))
	n, err := cctx.CompressTyped(dst, []*engine.TypedRef{ref})
	if err != nil {
		t.Fatalf("CompressTyped: %v", err)
	}

	err = dctx.DecompressTyped([]*engine.TypedBuffer{{}, {}}, dst[:n])
	if err == nil || !strings.Contains(err.Error(), "outputs") {
		t.Errorf("DecompressTyped with wrong buffer count = %v, want output count error", err)
	}
}

func TestDeltaTransformRoundTrip(t *testing.T) {
	for _, width := range []int{1, 2, 4, 8} {
		src := make([]byte, 32*width)
		for i := range src {
			src[i] = byte(i * 7)
		}
		enc := deltaEncode(src, width)
		dec := deltaDecode(enc, width)
		if !bytes.Equal(dec, src) {
			t.Errorf("width %d: delta round trip mismatch", width)
		}
	}
}

func TestGraphDescriptionRoundTrip(t *testing.T) {
	eng := New()
	compiled, err := eng.CompileDescription("ts: u64 delta\npayload: string\n")
	if err != nil {
		t.Fatalf("CompileDescription: %v", err)
	}

	g, _ := eng.NewGraph()
	defer g.Close()
	gid, err := g.SetupProfile(compiled)
	if err != nil {
		t.Fatalf("SetupProfile: %v", err)
	}
	if err := g.SelectStarting(gid); err != nil {
		t.Fatalf("SelectStarting: %v", err)
	}

	cctx, _ := eng.NewCCtx()
	defer cctx.Close()
	if err := cctx.RefGraph(g); err != nil {
		t.Fatalf("RefGraph: %v", err)
	}

	ts := make([]byte, 400)
	for i := 0; i < 50; i++ {
		binary.LittleEndian.PutUint64(ts[i*8:], uint64(1700000000+i))
	}
	ref, _ := eng.NewTypedRef(engine.KindNumeric, ts, 8, nil)
	dst := make([]byte, eng.CompressBound(len(ts)))
	n, err := cctx.CompressTyped(dst, []*engine.TypedRef{ref})
	if err != nil {
		t.Fatalf("CompressTyped: %v", err)
	}

	dctx, _ := eng.NewDCtx()
	defer dctx.Close()
	bufs := []*engine.TypedBuffer{{}}
	if err := dctx.DecompressTyped(bufs, dst[:n]); err != nil {
		t.Fatalf("DecompressTyped: %v", err)
	}
	if !bytes.Equal(bufs[0].Data, ts) {
		t.Error("delta graph round trip mismatch")
	}
}

func TestSelectStartingUnknownGraph(t *testing.T) {
	g, _ := New().NewGraph()
	defer g.Close()
	if err := g.SelectStarting(engine.GraphID(99)); err == nil {
		t.Error("SelectStarting(99) succeeded, want error")
	}
	if err := g.SelectStarting(graphDescribed); err == nil {
		t.Error("SelectStarting(described) without a description succeeded, want error")
	}
	if err := g.SelectStarting(engine.GraphGeneric); err != nil {
		t.Errorf("SelectStarting(generic) = %v, want nil", err)
	}
}

func TestCompileDescriptionDiagnostics(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"missing colon", "just a line", "expected"},
		{"unknown type", "f: u24", `unknown field type "u24"`},
		{"delta on string", "s: string delta", `"delta" requires a numeric type`},
		{"duplicate field", "a: u32\na: u64", "already declared"},
		{"no fields", "# only a comment\n", "no fields"},
		{"bad struct width", "r: struct(0)", "positive record width"},
	}

	eng := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eng.CompileDescription(tt.source)
			if err == nil {
				t.Fatalf("CompileDescription(%q) succeeded, want diagnostic", tt.source)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("diagnostic = %q, want substring %q", err.Error(), tt.want)
			}
		})
	}
}

func TestCompileDescriptionLineNumbers(t *testing.T) {
	_, err := New().CompileDescription("a: u32\n\nb: bogus\n")
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Errorf("diagnostic = %v, want line 3 reference", err)
	}
}

func TestOpenFrameDegradesOnTruncation(t *testing.T) {
	eng := New()
	cctx, _ := eng.NewCCtx()
	defer cctx.Close()

	numRef, _ := eng.NewTypedRef(engine.KindNumeric, make([]byte, 64), 8, nil)
	strRef, _ := eng.NewTypedRef(engine.KindString, []byte("abcdef"), 0, []uint32{3, 3})
	dst := make([]byte, eng.CompressBound(70+4*2))
	n, err := cctx.CompressTyped(dst, []*engine.TypedRef{numRef, strRef})
	if err != nil {
		t.Fatalf("CompressTyped: %v", err)
	}
	frame := dst[:n]

	r, err := eng.OpenFrame(frame[:len(frame)-1])
	if err != nil {
		t.Fatalf("OpenFrame on truncated frame: %v", err)
	}
	defer r.Close()

	count, err := r.NumOutputs()
	if err != nil || count != 2 {
		t.Fatalf("NumOutputs = %d, %v; want 2, nil", count, err)
	}
	// First output is intact.
	if _, err := r.OutputSize(0); err != nil {
		t.Errorf("OutputSize(0) = %v, want nil", err)
	}
	// The truncated last output keeps its kind but loses the sized fields.
	if kind, err := r.OutputKind(1); err != nil || kind != engine.KindString {
		t.Errorf("OutputKind(1) = %v, %v; want string, nil", kind, err)
	}
	if _, err := r.OutputSize(1); err == nil {
		t.Error("OutputSize(1) on truncated output succeeded, want error")
	}
	if _, err := r.OutputNumElts(1); err == nil {
		t.Error("OutputNumElts(1) on truncated output succeeded, want error")
	}
}

func TestOpenFrameRejectsGarbage(t *testing.T) {
	eng := New()
	if _, err := eng.OpenFrame([]byte("definitely not a frame")); err == nil {
		t.Error("OpenFrame(garbage) succeeded, want error")
	}
	if _, err := eng.OpenFrame([]byte{0x01}); err == nil {
		t.Error("OpenFrame(short) succeeded, want error")
	}
}

func TestNewTypedRefShapeErrors(t *testing.T) {
	eng := New()
	if _, err := eng.NewTypedRef(engine.KindNumeric, make([]byte, 10), 4, nil); err == nil {
		t.Error("misaligned numeric ref accepted")
	}
	if _, err := eng.NewTypedRef(engine.KindString, []byte("abc"), 0, []uint32{2}); err == nil {
		t.Error("string ref with wrong lengths sum accepted")
	}
	if _, err := eng.NewTypedRef(engine.KindUnknown, []byte("abc"), 1, nil); err == nil {
		t.Error("unknown-kind ref accepted")
	}
}

func TestCompressBoundCoversStringLengthsSidecar(t *testing.T) {
	eng := New()
	cctx, _ := eng.NewCCtx()
	defer cctx.Close()
	dctx, _ := eng.NewDCtx()
	defer dctx.Close()

	// Many short strings: the packed lengths sidecar dwarfs the payload, so
	// the bound must cover it too.
	const count = 50000
	lengths := make([]uint32, count)
	var payload []byte
	for i := range lengths {
		if i%4 == 0 {
			lengths[i] = 1
			payload = append(payload, byte('a'+i%26))
		}
	}
	ref, err := eng.NewTypedRef(engine.KindString, payload, 0, lengths)
	if err != nil {
		t.Fatalf("NewTypedRef: %v", err)
	}

	dst := make([]byte, eng.CompressBound(len(payload)+4*count))
	n, err := cctx.CompressTyped(dst, []*engine.TypedRef{ref})
	if err != nil {
		t.Fatalf("CompressTyped: %v", err)
	}

	bufs := []*engine.TypedBuffer{{}}
	if err := dctx.DecompressTyped(bufs, dst[:n]); err != nil {
		t.Fatalf("DecompressTyped: %v", err)
	}
	if !bytes.Equal(bufs[0].Data, payload) || len(bufs[0].Lengths) != count {
		t.Error("string sidecar round trip mismatch")
	}
}

func TestDecompressRejectsCorruptFrames(t *testing.T) {
	craft := func(out outputHeader) []byte {
		return appendOutput(appendFrameHeader(nil, currentFormatVersion, 1), out)
	}
	hugeCount := binary.AppendUvarint(
		append(append([]byte(nil), frameMagic...), currentFormatVersion, 0), 1<<60)

	tests := []struct {
		name  string
		frame []byte
	}{
		{"output count beyond frame size", hugeCount},
		{"numeric width not a power of two", craft(outputHeader{
			kind: engine.KindNumeric, enc: encStored, eltWidth: 3, numElts: 1,
			rawSize: 3, block: []byte{1, 2, 3}})},
		{"numeric width zero", craft(outputHeader{
			kind: engine.KindNumeric, enc: encStored, transform: transformDelta,
			eltWidth: 0, numElts: 1, rawSize: 3, block: []byte{1, 2, 3}})},
		{"delta with 3-byte elements", craft(outputHeader{
			kind: engine.KindSerial, enc: encStored, transform: transformDelta,
			eltWidth: 3, numElts: 1, rawSize: 3, block: []byte{1, 2, 3}})},
		{"struct width zero", craft(outputHeader{
			kind: engine.KindStruct, enc: encStored, eltWidth: 0, numElts: 1,
			rawSize: 4, block: []byte{1, 2, 3, 4}})},
		{"raw size not a multiple of width", craft(outputHeader{
			kind: engine.KindNumeric, enc: encStored, eltWidth: 4, numElts: 1,
			rawSize: 6, block: []byte{1, 2, 3, 4, 5, 6}})},
		{"unknown transform", craft(outputHeader{
			kind: engine.KindSerial, enc: encStored, transform: 9, eltWidth: 1,
			numElts: 2, rawSize: 2, block: []byte{1, 2}})},
		{"unknown block encoding", craft(outputHeader{
			kind: engine.KindSerial, enc: 7, eltWidth: 1, numElts: 2,
			rawSize: 2, block: []byte{1, 2}})},
		{"declared size disagrees with block", craft(outputHeader{
			kind: engine.KindSerial, enc: encStored, eltWidth: 1, numElts: 8,
			rawSize: 8, block: []byte{1, 2, 3, 4}})},
		{"huge declared raw size", craft(outputHeader{
			kind: engine.KindSerial, enc: encStored, eltWidth: 1,
			numElts: 1, rawSize: 1 << 40})},
		{"huge declared element count", craft(outputHeader{
			kind: engine.KindNumeric, enc: encStored, eltWidth: 8,
			numElts: 1 << 40, rawSize: 8, block: []byte{1, 2, 3, 4, 5, 6, 7, 8}})},
	}

	dctx, _ := New().NewDCtx()
	defer dctx.Close()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]byte, 1<<16)
			if _, err := dctx.Decompress(dst, tt.frame); err == nil {
				t.Error("Decompress on corrupt frame succeeded, want error")
			}
		})
	}
}

func TestOpenFrameRejectsHugeOutputCount(t *testing.T) {
	frame := binary.AppendUvarint(
		append(append([]byte(nil), frameMagic...), currentFormatVersion, 0), 1<<60)
	if _, err := New().OpenFrame(frame); err == nil {
		t.Error("OpenFrame with impossible output count succeeded, want error")
	}
}

func TestCompressBoundCoversIncompressible(t *testing.T) {
	eng := New()
	cctx, _ := eng.NewCCtx()
	defer cctx.Close()

	// Pseudo-random bytes do not compress; the stored fallback plus header
	// slack must still fit in the bound.
	src := make([]byte, 4096)
	state := uint32(0x9E3779B9)
	for i := range src {
		state = state*1664525 + 1013904223
		src[i] = byte(state >> 24)
	}
	dst := make([]byte, eng.CompressBound(len(src)))
	if _, err := cctx.Compress(dst, src); err != nil {
		t.Fatalf("Compress incompressible: %v", err)
	}
}
