package server

import (
	"github.com/recera/netgraph/pkg/vdom"
)

// LiveClientMeta names the meta tag carrying the live endpoint
const LiveClientMeta = "netgraph-live"

// InjectLiveClient adds the live surface client to an html document. The
// client connects to endpoint, reports the browser's capabilities, replaces
// the contents of the element with id surfaceID on every mount and applies
// patches in between.
func InjectLiveClient(doc *vdom.VNode, endpoint, surfaceID string) *vdom.VNode {
	if doc == nil || doc.Kind != vdom.KindElement || doc.Tag != "html" {
		return doc
	}

	meta := vdom.NewElement("meta", vdom.Props{
		"name":         LiveClientMeta,
		"content":      endpoint,
		"data-surface": surfaceID,
	})
	script := vdom.NewElement("script", vdom.Props{"type": "text/javascript"},
		vdom.NewText(liveClientScript),
	)

	for i := range doc.Kids {
		child := &doc.Kids[i]
		switch child.Tag {
		case "head":
			child.Kids = append(child.Kids, *meta)
		case "body":
			child.Kids = append(child.Kids, *script)
		}
	}
	return doc
}

// liveClientScript speaks the binary live protocol. Node ids in patches are
// 1-based pre-order positions over elements and text nodes of the mounted
// tree, indexed once per frame before any patch applies.
const liveClientScript = `
(function() {
    const meta = document.querySelector('meta[name="netgraph-live"]');
    if (!meta || !window.WebSocket) return;
    const host = document.getElementById(meta.dataset.surface);
    if (!host) return;

    const enc = new TextEncoder();
    const dec = new TextDecoder();
    let ws = null;

    function reader(buf) {
        const view = new DataView(buf);
        let off = 0;
        return {
            byte() { return view.getUint8(off++); },
            uvarint() {
                let v = 0, mul = 1;
                for (;;) {
                    const b = view.getUint8(off++);
                    v += (b & 0x7f) * mul;
                    if ((b & 0x80) === 0) return v;
                    mul *= 128;
                }
            },
            string() {
                const n = this.uvarint();
                const s = dec.decode(new Uint8Array(buf, off, n));
                off += n;
                return s;
            },
        };
    }

    function uvarint(n) {
        const out = [];
        while (n >= 0x80) { out.push((n & 0x7f) | 0x80); n = Math.floor(n / 128); }
        out.push(n);
        return out;
    }

    function f32(v) {
        const b = new Uint8Array(4);
        new DataView(b.buffer).setFloat32(0, v, true);
        return Array.from(b);
    }

    function send(bytes) {
        if (ws && ws.readyState === WebSocket.OPEN) ws.send(new Uint8Array(bytes));
    }

    function event(type, payload) { send([0x01, type].concat(payload || [])); }
    function text(s) { const b = enc.encode(s); return uvarint(b.length).concat(Array.from(b)); }

    function index(root) {
        const nodes = [];
        (function walk(n) {
            nodes.push(n);
            for (let c = n.firstChild; c; c = c.nextSibling) walk(c);
        })(root);
        return nodes;
    }

    function fragment(markup) {
        const t = document.createElementNS('http://www.w3.org/2000/svg', 'svg');
        t.innerHTML = markup;
        return t.firstChild;
    }

    function patch(r) {
        const root = host.firstChild;
        if (!root) return;
        const nodes = index(root);
        const count = r.uvarint();
        for (let i = 0; i < count; i++) {
            const op = r.byte();
            const node = nodes[r.uvarint() - 1];
            switch (op) {
            case 0x01: node.textContent = r.string(); break;
            case 0x02: { const k = r.string(); node.setAttribute(k, r.string()); break; }
            case 0x06: node.removeAttribute(r.string()); break;
            case 0x03: node.replaceWith(fragment(r.string())); break;
            default: throw new Error('unknown patch op ' + op);
            }
        }
    }

    function onFrame(buf) {
        const r = reader(buf);
        switch (r.byte()) {
        case 0x00:
            try { patch(r); } catch (e) { event(0x05, text(String(e && e.message || e))); }
            break;
        case 0x02: {
            const name = r.string();
            if (name === 'STATE') host.dataset.state = r.string();
            break;
        }
        case 0x03:
            host.dataset.mode = r.string();
            host.innerHTML = r.string();
            break;
        }
    }

    function hints() {
        const q = new URLSearchParams();
        if (typeof SVGSVGElement === 'undefined') q.set('graphics', 'none');
        if (navigator.hardwareConcurrency) q.set('cores', navigator.hardwareConcurrency);
        if (navigator.deviceMemory) q.set('memory', navigator.deviceMemory);
        if (navigator.maxTouchPoints) q.set('touch', navigator.maxTouchPoints);
        q.set('dpr', window.devicePixelRatio || 1);
        if (reduced()) q.set('motion', 'reduce');
        return q.toString();
    }

    const motion = window.matchMedia('(prefers-reduced-motion: reduce)');
    const prefKey = 'netgraph.reduceMotion';
    function stored() {
        try { return localStorage.getItem(prefKey); } catch (e) { return null; }
    }
    function reduced() {
        const v = stored();
        return v === null ? motion.matches : v === '1';
    }
    // The user's choice wins over later system changes
    motion.addEventListener('change', (e) => { if (stored() === null) event(0x02, [e.matches ? 1 : 0]); });

    function scroll() {
        const el = document.documentElement;
        const range = el.scrollHeight - window.innerHeight;
        const p = range > 0 ? Math.min(1, Math.max(0, el.scrollTop / range)) : 0;
        event(0x01, f32(p));
    }
    window.addEventListener('scroll', scroll, { passive: true });

    window.addEventListener('pointermove', (e) => {
        event(0x06, f32(e.clientX / window.innerWidth * 2 - 1).concat(f32(1 - e.clientY / window.innerHeight * 2)));
    }, { passive: true });

    window.netgraph = {
        lose(reason) { event(0x03, text(reason || 'lost')); },
        restore() { event(0x04); },
        // reduce(true|false) records the choice; reduce(null) follows the system again
        reduce(on) {
            try {
                if (on === null || on === undefined) localStorage.removeItem(prefKey);
                else localStorage.setItem(prefKey, on ? '1' : '0');
            } catch (e) {}
            const v = on === null || on === undefined ? motion.matches : !!on;
            event(0x02, [v ? 1 : 0]);
            return v;
        },
    };

    function connect() {
        const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
        ws = new WebSocket(proto + '//' + location.host + meta.content + 'new?' + hints());
        ws.binaryType = 'arraybuffer';
        ws.onopen = scroll;
        ws.onmessage = (e) => { if (e.data instanceof ArrayBuffer) onFrame(e.data); };
        ws.onclose = () => { host.dataset.state = 'disconnected'; setTimeout(connect, 2000); };
    }
    connect();
})();
`
