package runner

import (
	"strings"
	"testing"
	"time"

	"github.com/psilva261/minjq/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const simpleHTML = `
<html>
<body>
<h1 id="title">Hello</h1>
<div class="wrap"><button class="btn" id="b">OK</button></div>
<ul><li>a</li><li class="sel">b</li><li>c</li></ul>
<input id="i" value="joe">
<script>var inline = 1;</script>
<script src="x.js"></script>
<script type="text/template"><p></p></script>
</body>
</html>
`

func init() {
	log.Debug = true
}

func start(t *testing.T) *Runner {
	r, err := New(simpleHTML)
	require.NoError(t, err)
	r.Settle = 20 * time.Millisecond
	r.Start()
	t.Cleanup(r.Stop)
	_, err = r.Exec(``, true)
	require.NoError(t, err)
	return r
}

func exec(t *testing.T, r *Runner, s string) string {
	res, err := r.Exec(s, false)
	require.NoError(t, err, s)
	return res
}

func TestSimple(t *testing.T) {
	r := start(t)
	exec(t, r, `
	var state = 'empty';
	var a = 1;
	b = 2;
	`)
	exec(t, r, `
	(function() {
		if (state !== 'empty') throw new Error(state);
		state = a + b;
	})()
	`)
	assert.Equal(t, "3", exec(t, r, `state`))

	_, err := r.Exec(`throw new Error('x')`, false)
	assert.Error(t, err)
}

func TestGlobals(t *testing.T) {
	r := start(t)
	assert.Equal(t, "function object object", exec(t, r, `[typeof $, typeof document, typeof window].join(' ')`))
	assert.Equal(t, "true", exec(t, r, `require('minjq') === $`))
	assert.Equal(t, "Hello", exec(t, r, `$.one('#title').textContent()`))
	assert.Equal(t, "null", exec(t, r, `String($.one('#none'))`))
}

func TestCollection(t *testing.T) {
	r := start(t)
	assert.Equal(t, "3", exec(t, r, `$('li').length`))
	assert.Equal(t, "1", exec(t, r, `$('li').eq(1).index()`))
	assert.Equal(t, "true", exec(t, r, `$('li.sel').hasClass('sel')`))
	assert.Equal(t, "1", exec(t, r, `$('li', $('ul')).find('.sel').length`))
	assert.Equal(t, "0", exec(t, r, `$('li', '.missing').length`))
	assert.Equal(t, "0", exec(t, r, `$('div >').length`))
	assert.Equal(t, "null", exec(t, r, `String($('#i').attr('nope'))`))
	assert.Equal(t, "undefined", exec(t, r, `String($('.none').val())`))
	assert.Equal(t, "joe", exec(t, r, `$('#i').val()`))
	assert.Equal(t, "ann", exec(t, r, `$('#i').val('ann').val()`))
	assert.Equal(t, "9", exec(t, r, `$('li').data('userId', '9').data('userId')`))
	assert.Equal(t, "2", exec(t, r, `$([$.one('#b'), $.one('#i')]).length`))

	exec(t, r, `$('li').addClass('x').css({color: 'red'}).attr({title: 't'})`)
	h, err := r.HTML()
	require.NoError(t, err)
	assert.Contains(t, h, `<li class="sel x" style="color: red;" title="t">b</li>`)
}

func TestFragmentAppend(t *testing.T) {
	r := start(t)
	exec(t, r, `$('ul').append('<li id="new">d</li>')`)
	assert.Equal(t, "3", exec(t, r, `$('#new').index()`))
	assert.Equal(t, "DIV", exec(t, r, `$('<p>x</p>')[0].parent().tagName()`))
}

func TestClick(t *testing.T) {
	r := start(t)
	exec(t, r, `$('#b').click(function(ev) { $(this).addClass('done'); })`)
	h, changed, err := r.TriggerClick("#b")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, h, `class="btn done"`)

	_, _, err = r.TriggerClick("#none")
	assert.Error(t, err)
}

func TestDelegation(t *testing.T) {
	r := start(t)
	exec(t, r, `
	var n = 0;
	var h = function(ev) { n++; };
	$('.wrap').on('click.ns', '.btn', h);
	`)
	_, _, err := r.TriggerClick(".btn")
	require.NoError(t, err)
	assert.Equal(t, "1", exec(t, r, `n`))

	exec(t, r, `$('.wrap').off('click', '.btn', function() {})`)
	_, _, err = r.TriggerClick(".btn")
	require.NoError(t, err)
	assert.Equal(t, "2", exec(t, r, `n`), "unknown handler removes nothing")

	exec(t, r, `$('.wrap').off('.ns')`)
	_, _, err = r.TriggerClick(".btn")
	require.NoError(t, err)
	assert.Equal(t, "3", exec(t, r, `n`), "namespace without type removes nothing")

	exec(t, r, `$('.wrap').off('click.ns')`)
	_, _, err = r.TriggerClick(".btn")
	require.NoError(t, err)
	assert.Equal(t, "3", exec(t, r, `n`))
	assert.Equal(t, 0, r.q.Router().Len())
}

func TestOffHandler(t *testing.T) {
	r := start(t)
	exec(t, r, `
	var calls = [];
	var h1 = function() { calls.push('h1'); };
	var h2 = function() { calls.push('h2'); };
	$('#b').on('click', h1).on('click', h2).off('click', h1).trigger('click');
	`)
	assert.Equal(t, "h2", exec(t, r, `calls.join(',')`))
}

func TestReady(t *testing.T) {
	r := start(t)
	exec(t, r, `
	var ok = false, settled = false;
	$.ready(function() { ok = true; }).then(function() { settled = true; });
	`)
	assert.Equal(t, "false", exec(t, r, `ok`))
	require.NoError(t, r.CloseDoc())
	assert.Equal(t, "true", exec(t, r, `ok`))
	assert.Eventually(t, func() bool {
		res, err := r.Exec(`settled`, false)
		return err == nil && res == "true"
	}, time.Second, 10*time.Millisecond)
}

func TestReadyTimeout(t *testing.T) {
	r := start(t)
	exec(t, r, `
	var failed = '';
	$.ready(function() {}, 10).catch(function(e) { failed = String(e); });
	`)
	assert.Eventually(t, func() bool {
		res, err := r.Exec(`failed`, false)
		return err == nil && strings.Contains(res, "timeout")
	}, time.Second, 10*time.Millisecond)
}

func TestDebounce(t *testing.T) {
	r := start(t)
	exec(t, r, `
	var n = 0;
	$('#i').debounce('input', function() { n++; }, 20);
	$('#i').trigger('input').trigger('input').trigger('input');
	`)
	assert.Equal(t, "0", exec(t, r, `n`))
	assert.Eventually(t, func() bool {
		res, err := r.Exec(`n`, false)
		return err == nil && res == "1"
	}, time.Second, 10*time.Millisecond)
}

func TestTrackChanges(t *testing.T) {
	r := start(t)
	// initial fragment parsing may have left mutations behind
	_, _, err := r.TrackChanges()
	require.NoError(t, err)

	_, changed, err := r.TrackChanges()
	require.NoError(t, err)
	assert.False(t, changed)

	exec(t, r, `$('#title').html('Bye')`)
	h, changed, err := r.TrackChanges()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, h, `<h1 id="title">Bye</h1>`)
}

func TestInsertedScriptRuns(t *testing.T) {
	r := start(t)
	exec(t, r, `var ran = 0; $('body').append('<script>ran = 1<\/script>')`)
	_, changed, err := r.TrackChanges()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "1", exec(t, r, `ran`))
}

func TestPageScripts(t *testing.T) {
	r, err := New(simpleHTML)
	require.NoError(t, err)
	assert.Equal(t, []string{"var inline = 1;"}, r.PageScripts())
}

func TestCompatComments(t *testing.T) {
	r := start(t)
	assert.Equal(t, "2", exec(t, r, "<!--\n1 + 1\n-->"))
}

func TestThrottleDelay(t *testing.T) {
	r := start(t)
	exec(t, r, `
	var n = 0, m = 0;
	$('#b').throttle('click', function() { n++; }, 0);
	$('.wrap').throttle('click', function() { m++; });
	$('#b').trigger('click').trigger('click');
	`)
	assert.Equal(t, "2", exec(t, r, `n`), "zero delay does not limit")
	assert.Equal(t, "1", exec(t, r, `m`), "default delay applies when omitted")
}

func TestHandlersPruned(t *testing.T) {
	r := start(t)
	exec(t, r, `
	var h1 = function() {}, h2 = function() {};
	$('.btn').on('click', h1);
	$('li').on('click', h1).on('click.x', h2);
	`)
	assert.Len(t, r.handlers, 2)

	exec(t, r, `$('li').off('click', h1)`)
	assert.Len(t, r.handlers, 2, "h1 still bound to the button")

	exec(t, r, `$('.btn').offAll()`)
	assert.Len(t, r.handlers, 1)

	exec(t, r, `$('li').remove()`)
	assert.Empty(t, r.handlers)
	assert.Equal(t, 0, r.q.Router().Len())
}
