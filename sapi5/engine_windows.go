package sapi5

import (
	"sync/atomic"
	"syscall"
	"unsafe"

	"github.com/asticode/go-astilog"
	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"github.com/pkg/errors"
	"golang.org/x/sys/windows/registry"
)

const (
	comClass        = "SAPI.SpVoice"
	fileStreamClass = "SAPI.SpFileStream"
)

// SpeechStreamFileMode
const ssfmCreateForWrite = 3

var (
	diidSpeechVoiceEvents = ole.NewGUID("{A372ACD1-3BEF-4BBD-8FFB-CB3E2B416AF8}")
	iidSpAudio            = ole.NewGUID("{C05C768F-FAE8-4EC2-8E07-338321C12452}")
)

// _ISpeechVoiceEvents dispids
const (
	dispidEndStream = 2
	dispidBookmark  = 4
)

// Available returns whether the SAPI5 voice class is registered on this
// system
func Available() bool {
	k, err := registry.OpenKey(registry.CLASSES_ROOT, comClass, registry.QUERY_VALUE)
	if err != nil {
		return false
	}
	k.Close()
	return true
}

// oleEngine wraps one SAPI.SpVoice COM object
type oleEngine struct {
	audio  *spAudio
	cookie uint32
	cp     *ole.IConnectionPoint
	d      *ole.IDispatch
	events *voiceEvents
	u      *ole.IUnknown
}

// NewEngine creates an engine backed by a new SAPI.SpVoice COM object, with
// bookmark and end-of-stream events delivered to the sink
func NewEngine(s *Sink) (e Engine, err error) {
	// Initialize ole
	astilog.Debug("sapi5: initializing ole")
	if err = ole.CoInitialize(0); err != nil {
		err = errors.Wrap(err, "sapi5: initializing ole failed")
		return
	}

	// Release whatever was acquired when a later step fails, so that an
	// aborted engine never leaks the COM object
	o := &oleEngine{}
	defer func() {
		if err != nil {
			o.Close()
		}
	}()

	// Create SAPI.SpVoice object
	astilog.Debugf("sapi5: creating %s ole object", comClass)
	if o.u, err = oleutil.CreateObject(comClass); err != nil {
		err = errors.Wrapf(err, "sapi5: creating %s ole object failed", comClass)
		return
	}

	// Get IDispatch
	if o.d, err = o.u.QueryInterface(ole.IID_IDispatch); err != nil {
		err = errors.Wrap(err, "sapi5: getting ole IDispatch failed")
		return
	}

	// Only bookmark and end-of-stream events are of interest
	if _, err = oleutil.PutProperty(o.d, "EventInterests", int32(EventBookmark|EventEndInputStream)); err != nil {
		err = errors.Wrap(err, "sapi5: setting event interests failed")
		return
	}

	// Subscribe events
	if err = o.subscribeEvents(s); err != nil {
		err = errors.Wrap(err, "sapi5: subscribing events failed")
		return
	}

	// Get the low level audio interface to aid in stopping and pausing.
	// Not all outputs expose it, in which case fast stop/pause is disabled.
	if err = o.initAudio(); err != nil {
		astilog.Debug(errors.Wrap(err, "sapi5: voice does not support ISpAudio"))
		err = nil
	}
	e = o
	return
}

// subscribeEvents advises the events receiver on the voice's
// _ISpeechVoiceEvents connection point
func (o *oleEngine) subscribeEvents(s *Sink) (err error) {
	// Get connection point container
	var d *ole.IDispatch
	if d, err = o.u.QueryInterface(ole.IID_IConnectionPointContainer); err != nil {
		err = errors.Wrap(err, "sapi5: getting connection point container failed")
		return
	}
	c := (*ole.IConnectionPointContainer)(unsafe.Pointer(d))
	defer c.Release()

	// Find connection point
	if err = c.FindConnectionPoint(diidSpeechVoiceEvents, &o.cp); err != nil {
		err = errors.Wrap(err, "sapi5: finding connection point failed")
		return
	}

	// Advise
	o.events = newVoiceEvents(s)
	if o.cookie, err = o.cp.Advise((*ole.IUnknown)(unsafe.Pointer(o.events))); err != nil {
		err = errors.Wrap(err, "sapi5: advising events failed")
		return
	}
	return
}

// initAudio queries the ISpAudio interface of the current audio output
// stream
func (o *oleEngine) initAudio() (err error) {
	// Get audio output stream
	var v *ole.VARIANT
	if v, err = oleutil.GetProperty(o.d, "AudioOutputStream"); err != nil {
		err = errors.Wrap(err, "sapi5: getting audio output stream failed")
		return
	}
	d := v.ToIDispatch()
	if d == nil {
		err = errors.New("sapi5: no audio output stream")
		return
	}
	defer d.Release()

	// Query ISpAudio
	var a *ole.IDispatch
	if a, err = d.QueryInterface(iidSpAudio); err != nil {
		err = errors.Wrap(err, "sapi5: querying ISpAudio failed")
		return
	}
	o.audio = (*spAudio)(unsafe.Pointer(a))
	return
}

// Close implements the io.Closer interface
func (o *oleEngine) Close() (err error) {
	// Unsubscribe events
	if o.cp != nil {
		if e := o.cp.Unadvise(o.cookie); e != nil {
			astilog.Error(errors.Wrap(e, "sapi5: unadvising events failed"))
		}
		o.cp.Release()
		o.cp = nil
	}

	// Release audio
	if o.audio != nil {
		o.audio.Release()
		o.audio = nil
	}

	// Release IDispatch
	if o.d != nil {
		o.d.Release()
		o.d = nil
	}

	// Release IUnknown
	if o.u != nil {
		o.u.Release()
		o.u = nil
	}

	// Uninitialize ole
	ole.CoUninitialize()
	return
}

// Speak issues one speak request
func (o *oleEngine) Speak(text string, flags int) (err error) {
	var v *ole.VARIANT
	if v, err = oleutil.CallMethod(o.d, "Speak", text, int32(flags)); err != nil {
		err = errors.Wrap(err, "sapi5: calling Speak failed")
		return
	}
	if err = v.Clear(); err != nil {
		err = errors.Wrap(err, "sapi5: clearing variant failed")
		return
	}
	return
}

// SpeakToFile redirects the audio output stream to a wave file, speaks the
// text synchronously then restores the previous output
func (o *oleEngine) SpeakToFile(path, text string, flags int) (err error) {
	// Create file stream
	astilog.Debugf("sapi5: creating %s ole object", fileStreamClass)
	var u *ole.IUnknown
	if u, err = oleutil.CreateObject(fileStreamClass); err != nil {
		err = errors.Wrapf(err, "sapi5: creating %s ole object failed", fileStreamClass)
		return
	}
	defer u.Release()
	var fs *ole.IDispatch
	if fs, err = u.QueryInterface(ole.IID_IDispatch); err != nil {
		err = errors.Wrap(err, "sapi5: getting file stream IDispatch failed")
		return
	}
	defer fs.Release()

	// Open the file for write
	if _, err = oleutil.CallMethod(fs, "Open", path, int32(ssfmCreateForWrite), false); err != nil {
		err = errors.Wrapf(err, "sapi5: opening %s failed", path)
		return
	}

	// Save the current output stream
	var cv *ole.VARIANT
	if cv, err = oleutil.GetProperty(o.d, "AudioOutputStream"); err != nil {
		err = errors.Wrap(err, "sapi5: getting audio output stream failed")
		return
	}
	prev := cv.ToIDispatch()

	// Redirect the output to the file
	if _, err = oleutil.PutProperty(o.d, "AudioOutputStream", fs); err != nil {
		err = errors.Wrap(err, "sapi5: redirecting audio output stream failed")
		return
	}

	// Speak synchronously so that the file is complete on return
	_, serr := oleutil.CallMethod(o.d, "Speak", text, int32(flags&^SpeakFlagAsync))

	// Restore the previous output and close the file even when speaking
	// failed
	if prev != nil {
		if _, e := oleutil.PutProperty(o.d, "AudioOutputStream", prev); e != nil {
			astilog.Error(errors.Wrap(e, "sapi5: restoring audio output stream failed"))
		}
		prev.Release()
	}
	if _, e := oleutil.CallMethod(fs, "Close"); e != nil {
		astilog.Error(errors.Wrapf(e, "sapi5: closing %s failed", path))
	}
	if serr != nil {
		err = errors.Wrap(serr, "sapi5: calling Speak failed")
		return
	}
	return
}

func (o *oleEngine) Rate() (rate int, err error) {
	var v *ole.VARIANT
	if v, err = oleutil.GetProperty(o.d, "Rate"); err != nil {
		err = errors.Wrap(err, "sapi5: getting Rate failed")
		return
	}
	rate = int(v.Val)
	return
}

func (o *oleEngine) SetRate(rate int) (err error) {
	if _, err = oleutil.PutProperty(o.d, "Rate", int32(rate)); err != nil {
		err = errors.Wrap(err, "sapi5: setting Rate failed")
		return
	}
	return
}

func (o *oleEngine) Volume() (volume int, err error) {
	var v *ole.VARIANT
	if v, err = oleutil.GetProperty(o.d, "Volume"); err != nil {
		err = errors.Wrap(err, "sapi5: getting Volume failed")
		return
	}
	volume = int(v.Val)
	return
}

func (o *oleEngine) SetVolume(volume int) (err error) {
	if _, err = oleutil.PutProperty(o.d, "Volume", int32(volume)); err != nil {
		err = errors.Wrap(err, "sapi5: setting Volume failed")
		return
	}
	return
}

func (o *oleEngine) Voice() (t Token, err error) {
	var v *ole.VARIANT
	if v, err = oleutil.GetProperty(o.d, "Voice"); err != nil {
		err = errors.Wrap(err, "sapi5: getting Voice failed")
		return
	}
	d := v.ToIDispatch()
	if d == nil {
		err = errors.New("sapi5: no active voice")
		return
	}
	t = oleToken{d: d}
	return
}

func (o *oleEngine) SetVoice(t Token) (err error) {
	v, ok := t.(oleToken)
	if !ok {
		err = errors.New("sapi5: token is not an ole token")
		return
	}
	if _, err = oleutil.PutProperty(o.d, "Voice", v.d); err != nil {
		err = errors.Wrap(err, "sapi5: setting Voice failed")
		return
	}
	return
}

// VoiceTokens fetches the installed voice tokens. Items are fetched by
// index: enumerating the collection doesn't yield the correct interface with
// some token enumerators.
func (o *oleEngine) VoiceTokens() (ts []Token, err error) {
	// Get collection
	var v *ole.VARIANT
	if v, err = oleutil.CallMethod(o.d, "GetVoices"); err != nil {
		err = errors.Wrap(err, "sapi5: calling GetVoices failed")
		return
	}
	c := v.ToIDispatch()
	if c == nil {
		err = errors.New("sapi5: no voices collection")
		return
	}

	// Get count
	var cv *ole.VARIANT
	if cv, err = oleutil.GetProperty(c, "Count"); err != nil {
		err = errors.Wrap(err, "sapi5: getting voices count failed")
		return
	}

	// Loop through tokens
	for i := 0; i < int(cv.Val); i++ {
		var iv *ole.VARIANT
		if iv, err = oleutil.CallMethod(c, "Item", int32(i)); err != nil {
			err = errors.Wrapf(err, "sapi5: getting voice %d failed", i)
			return
		}
		if d := iv.ToIDispatch(); d != nil {
			ts = append(ts, oleToken{d: d})
		}
	}
	return
}

// SetAudioOutputIndex selects the audio output with the provided index
func (o *oleEngine) SetAudioOutputIndex(i int) (err error) {
	// Get collection
	var v *ole.VARIANT
	if v, err = oleutil.CallMethod(o.d, "GetAudioOutputs"); err != nil {
		err = errors.Wrap(err, "sapi5: calling GetAudioOutputs failed")
		return
	}
	c := v.ToIDispatch()
	if c == nil {
		err = errors.New("sapi5: no audio outputs collection")
		return
	}

	// Get item
	var iv *ole.VARIANT
	if iv, err = oleutil.CallMethod(c, "Item", int32(i)); err != nil {
		err = errors.Wrapf(err, "sapi5: getting audio output %d failed", i)
		return
	}

	// Set output
	if _, err = oleutil.PutProperty(o.d, "AudioOutput", iv.ToIDispatch()); err != nil {
		err = errors.Wrap(err, "sapi5: setting AudioOutput failed")
		return
	}
	return
}

func (o *oleEngine) LastBookmark() (b string, err error) {
	// Get status
	var v *ole.VARIANT
	if v, err = oleutil.GetProperty(o.d, "Status"); err != nil {
		err = errors.Wrap(err, "sapi5: getting Status failed")
		return
	}
	d := v.ToIDispatch()
	if d == nil {
		err = errors.New("sapi5: no status")
		return
	}
	defer d.Release()

	// Get last bookmark
	var bv *ole.VARIANT
	if bv, err = oleutil.GetProperty(d, "LastBookmark"); err != nil {
		err = errors.Wrap(err, "sapi5: getting LastBookmark failed")
		return
	}
	b = bv.ToString()
	return
}

func (o *oleEngine) SupportsAudioState() bool {
	return o.audio != nil
}

func (o *oleEngine) SetAudioState(s AudioState) (err error) {
	if o.audio == nil {
		err = errors.New("sapi5: no ISpAudio interface")
		return
	}
	return o.audio.SetState(s)
}

// oleToken wraps one ISpeechObjectToken dispatch
type oleToken struct {
	d *ole.IDispatch
}

func (t oleToken) ID() (id string, err error) {
	var v *ole.VARIANT
	if v, err = oleutil.GetProperty(t.d, "Id"); err != nil {
		err = errors.Wrap(err, "sapi5: getting token Id failed")
		return
	}
	id = v.ToString()
	return
}

func (t oleToken) Description() (d string, err error) {
	var v *ole.VARIANT
	if v, err = oleutil.CallMethod(t.d, "GetDescription"); err != nil {
		err = errors.Wrap(err, "sapi5: calling GetDescription failed")
		return
	}
	d = v.ToString()
	return
}

func (t oleToken) Attribute(name string) (a string, err error) {
	var v *ole.VARIANT
	if v, err = oleutil.CallMethod(t.d, "GetAttribute", name); err != nil {
		err = errors.Wrapf(err, "sapi5: getting attribute %s failed", name)
		return
	}
	a = v.ToString()
	return
}

// spAudio is a minimal ISpAudio binding, just enough to toggle the audio
// state. The vtable lists every inherited slot so that SetState lands on the
// right one: IUnknown, ISequentialStream, IStream, ISpStreamFormat, then
// ISpAudio.
type spAudio struct {
	lpVtbl *spAudioVtbl
}

type spAudioVtbl struct {
	queryInterface uintptr
	addRef         uintptr
	release        uintptr
	read           uintptr
	write          uintptr
	seek           uintptr
	setSize        uintptr
	copyTo         uintptr
	commit         uintptr
	revert         uintptr
	lockRegion     uintptr
	unlockRegion   uintptr
	stat           uintptr
	clone          uintptr
	getFormat      uintptr
	setState       uintptr
}

func (a *spAudio) SetState(s AudioState) (err error) {
	hr, _, _ := syscall.Syscall(a.lpVtbl.setState, 3, uintptr(unsafe.Pointer(a)), uintptr(s), 0)
	if hr != 0 {
		err = errors.Wrap(ole.NewError(hr), "sapi5: setting audio state failed")
		return
	}
	return
}

func (a *spAudio) Release() {
	syscall.Syscall(a.lpVtbl.release, 1, uintptr(unsafe.Pointer(a)), 0, 0)
}

// voiceEvents implements the IDispatch vtable SAPI invokes events through,
// in the manner of go-ole's event receiver examples
type voiceEvents struct {
	lpVtbl *voiceEventsVtbl
	ref    int32
	sink   *Sink
}

type voiceEventsVtbl struct {
	queryInterface   uintptr
	addRef           uintptr
	release          uintptr
	getTypeInfoCount uintptr
	getTypeInfo      uintptr
	getIDsOfNames    uintptr
	invoke           uintptr
}

// dispParams mirrors DISPPARAMS. Arguments are stored last to first.
type dispParams struct {
	rgvarg            uintptr
	rgdispidNamedArgs uintptr
	cArgs             uint32
	cNamedArgs        uint32
}

const eNoInterface = 0x80004002

func newVoiceEvents(s *Sink) *voiceEvents {
	return &voiceEvents{
		lpVtbl: voiceEventsVtblInstance,
		ref:    1,
		sink:   s,
	}
}

var voiceEventsVtblInstance = &voiceEventsVtbl{
	queryInterface: syscall.NewCallback(func(this, riid, ppv uintptr) uintptr {
		iid := (*ole.GUID)(unsafe.Pointer(riid))
		if ole.IsEqualGUID(iid, ole.IID_IUnknown) || ole.IsEqualGUID(iid, ole.IID_IDispatch) || ole.IsEqualGUID(iid, diidSpeechVoiceEvents) {
			*(*uintptr)(unsafe.Pointer(ppv)) = this
			e := (*voiceEvents)(unsafe.Pointer(this))
			atomic.AddInt32(&e.ref, 1)
			return 0
		}
		*(*uintptr)(unsafe.Pointer(ppv)) = 0
		return eNoInterface
	}),
	addRef: syscall.NewCallback(func(this uintptr) uintptr {
		e := (*voiceEvents)(unsafe.Pointer(this))
		return uintptr(atomic.AddInt32(&e.ref, 1))
	}),
	release: syscall.NewCallback(func(this uintptr) uintptr {
		e := (*voiceEvents)(unsafe.Pointer(this))
		return uintptr(atomic.AddInt32(&e.ref, -1))
	}),
	getTypeInfoCount: syscall.NewCallback(func(this, pctinfo uintptr) uintptr {
		if pctinfo != 0 {
			*(*uint32)(unsafe.Pointer(pctinfo)) = 0
		}
		return 0
	}),
	getTypeInfo: syscall.NewCallback(func(this, itinfo, lcid, pptinfo uintptr) uintptr {
		return eNoInterface
	}),
	getIDsOfNames: syscall.NewCallback(func(this, riid, names, cNames, lcid, dispids uintptr) uintptr {
		return eNoInterface
	}),
	invoke: syscall.NewCallback(func(this, dispid, riid, lcid, flags, params, result, exceptInfo, argErr uintptr) uintptr {
		e := (*voiceEvents)(unsafe.Pointer(this))
		p := (*dispParams)(unsafe.Pointer(params))
		switch int32(dispid) {
		case dispidEndStream:
			e.sink.EndStream()
		case dispidBookmark:
			// Bookmark(StreamNumber, StreamPosition, Bookmark, BookmarkId):
			// arguments are stored last to first, BookmarkId comes first
			if p != nil && p.cArgs >= 1 {
				v := (*ole.VARIANT)(unsafe.Pointer(p.rgvarg))
				e.sink.Bookmark(int(v.Val))
			}
		}
		return 0
	}),
}
