package opengl

// ── World ────────────────────────────────────────────────────────────────────

const worldVertSrc = `
#version 410 core
layout(location = 0) in vec3 inPosition;
layout(location = 1) in vec3 inNormal;
layout(location = 2) in vec2 inUV;
layout(location = 3) in vec2 inLightmapUV;
layout(location = 4) in vec4 inColor;

uniform mat4 model;
uniform mat4 view;
uniform mat4 projection;
uniform vec2 uvOffset;

out vec3 fragWorldPos;
out vec3 fragNormal;
out vec2 fragUV;
out vec2 fragLightmapUV;
out vec4 fragColor;
out float fragViewDepth;

void main() {
    vec4 worldPos  = model * vec4(inPosition, 1.0);
    vec4 viewPos   = view * worldPos;
    gl_Position    = projection * viewPos;
    fragWorldPos   = worldPos.xyz;
    fragNormal     = mat3(model) * inNormal;
    fragUV         = inUV + uvOffset;
    fragLightmapUV = inLightmapUV;
    fragColor      = inColor;
    fragViewDepth  = -viewPos.z;
}
` + "\x00"

// worldFragSrc writes the lit colour to attachment 0 and the part of it
// that should bloom to attachment 1.
const worldFragSrc = `
#version 410 core
#define MAX_LIGHTS 16
#define NUM_CASCADES 8

#define SHADOW_NONE        0
#define SHADOW_DIRECTIONAL 1
#define SHADOW_POINT       2

in vec3 fragWorldPos;
in vec3 fragNormal;
in vec2 fragUV;
in vec2 fragLightmapUV;
in vec4 fragColor;
in float fragViewDepth;

layout(location = 0) out vec4 outColor;
layout(location = 1) out vec4 outHilights;

uniform sampler2D diffuseTex;   // unit 0
uniform sampler2D lightmapTex;  // unit 1
uniform bool      lightmapped;
uniform float     alpha;
uniform vec3      selfIllumColor;

uniform vec3 ambientColor;
uniform int  numLights;
uniform vec4  lightPosition[MAX_LIGHTS]; // w = 0 for directional lights
uniform vec3  lightColor[MAX_LIGHTS];
uniform float lightMultiplier[MAX_LIGHTS];
uniform float lightRadius[MAX_LIGHTS];
uniform bool  lightAmbientOnly[MAX_LIGHTS];

uniform bool  fogEnabled;
uniform float fogNear;
uniform float fogFar;
uniform vec3  fogColor;
uniform vec3  cameraPosition;

uniform int              shadowKind;
uniform sampler2DArray   shadowMap;  // unit 2
uniform samplerCube      shadowCube; // unit 3
uniform mat4             shadowLightSpaces[NUM_CASCADES];
uniform float            cascadeFarPlanes[NUM_CASCADES];
uniform vec4             shadowLightPosition;
uniform float            shadowStrength;
uniform float            shadowRadius;
uniform float            shadowFar;

float directionalShadow() {
    int layer = NUM_CASCADES - 1;
    for (int i = 0; i < NUM_CASCADES; i++) {
        if (fragViewDepth < cascadeFarPlanes[i]) {
            layer = i;
            break;
        }
    }
    vec4 p = shadowLightSpaces[layer] * vec4(fragWorldPos, 1.0);
    vec3 coords = p.xyz / p.w * 0.5 + 0.5;
    if (coords.z > 1.0) return 0.0;

    vec2 texel = 1.0 / vec2(textureSize(shadowMap, 0).xy);
    float shadow = 0.0;
    for (int x = -1; x <= 1; x++) {
        for (int y = -1; y <= 1; y++) {
            float depth = texture(shadowMap, vec3(coords.xy + vec2(x, y) * texel, layer)).r;
            shadow += coords.z - 0.002 > depth ? 1.0 : 0.0;
        }
    }
    return shadow / 9.0;
}

float pointShadow() {
    vec3 toFrag = fragWorldPos - shadowLightPosition.xyz;
    float dist = length(toFrag);
    if (dist > shadowRadius) return 0.0;
    float closest = texture(shadowCube, toFrag).r * shadowFar;
    return dist - 0.05 > closest ? 1.0 : 0.0;
}

float shadowFactor() {
    if (shadowKind == SHADOW_DIRECTIONAL) return directionalShadow() * shadowStrength;
    if (shadowKind == SHADOW_POINT) return pointShadow() * shadowStrength;
    return 0.0;
}

vec3 lighting(vec3 N) {
    vec3 result = ambientColor;
    for (int i = 0; i < numLights && i < MAX_LIGHTS; i++) {
        vec3 color = lightColor[i] * lightMultiplier[i];
        if (lightAmbientOnly[i]) {
            result += color * 0.5;
            continue;
        }
        vec3 L;
        float atten = 1.0;
        if (lightPosition[i].w == 0.0) {
            L = normalize(lightPosition[i].xyz - fragWorldPos);
        } else {
            vec3 toLight = lightPosition[i].xyz - fragWorldPos;
            float dist = length(toLight);
            float radius = max(lightRadius[i], 0.001);
            atten = clamp(1.0 - (dist * dist) / (radius * radius), 0.0, 1.0);
            L = toLight / max(dist, 0.0001);
        }
        result += color * max(dot(N, L), 0.0) * atten;
    }
    return result;
}

void main() {
    vec4 diffuse = texture(diffuseTex, fragUV) * fragColor;
    vec3 N = normalize(fragNormal);

    vec3 light;
    if (lightmapped) {
        light = texture(lightmapTex, fragLightmapUV).rgb;
    } else {
        light = lighting(N);
    }
    light *= 1.0 - 0.5 * shadowFactor();
    light = max(light, selfIllumColor);

    vec3 color = diffuse.rgb * light;
    if (fogEnabled) {
        float dist = length(fragWorldPos - cameraPosition);
        float f = clamp((dist - fogNear) / max(fogFar - fogNear, 0.0001), 0.0, 1.0);
        color = mix(color, fogColor, f);
    }

    float a = diffuse.a * alpha;
    outColor    = vec4(color, a);
    outHilights = vec4(diffuse.rgb * selfIllumColor, a);
}
` + "\x00"

// ── Depth ────────────────────────────────────────────────────────────────────

const depthVertSrc = `
#version 410 core
layout(location = 0) in vec3 inPosition;
uniform mat4 model;
uniform mat4 lightSpace;
out vec3 fragWorldPos;
void main() {
    vec4 worldPos = model * vec4(inPosition, 1.0);
    fragWorldPos  = worldPos.xyz;
    gl_Position   = lightSpace * worldPos;
}
` + "\x00"

// depthFragSrc stores linear distance for point lights; directional maps
// keep the rasterised depth.
const depthFragSrc = `
#version 410 core
in vec3 fragWorldPos;
uniform bool  linearDepth;
uniform vec3  lightPosition;
uniform float shadowFar;
void main() {
    if (linearDepth) {
        gl_FragDepth = length(fragWorldPos - lightPosition) / shadowFar;
    } else {
        gl_FragDepth = gl_FragCoord.z;
    }
}
` + "\x00"

// ── Walkmesh ─────────────────────────────────────────────────────────────────

// walkmeshVertSrc reads the surface material from the first texture coordinate.
const walkmeshVertSrc = `
#version 410 core
layout(location = 0) in vec3 inPosition;
layout(location = 2) in vec2 inUV;
uniform mat4 model;
uniform mat4 view;
uniform mat4 projection;
flat out int fragMaterial;
void main() {
    gl_Position  = projection * view * model * vec4(inPosition, 1.0);
    fragMaterial = int(inUV.x + 0.5);
}
` + "\x00"

const walkmeshFragSrc = `
#version 410 core
#define MAX_MATERIALS 64
flat in int fragMaterial;
layout(location = 0) out vec4 outColor;
layout(location = 1) out vec4 outHilights;
uniform vec4 materials[MAX_MATERIALS];
void main() {
    outColor    = materials[clamp(fragMaterial, 0, MAX_MATERIALS - 1)];
    outHilights = vec4(0.0);
}
` + "\x00"

// ── Billboards ───────────────────────────────────────────────────────────────

// billboardVertSrc receives world-space quad corners built on the CPU.
const billboardVertSrc = `
#version 410 core
layout(location = 0) in vec3 inPosition;
layout(location = 1) in vec2 inUV;
layout(location = 2) in vec4 inColor;
uniform mat4 viewProjection;
out vec2 fragUV;
out vec4 fragColor;
void main() {
    gl_Position = viewProjection * vec4(inPosition, 1.0);
    fragUV      = inUV;
    fragColor   = inColor;
}
` + "\x00"

const billboardFragSrc = `
#version 410 core
in vec2 fragUV;
in vec4 fragColor;
layout(location = 0) out vec4 outColor;
layout(location = 1) out vec4 outHilights;
uniform sampler2D spriteTex;
uniform bool      hilight;
void main() {
    vec4 color = texture(spriteTex, fragUV) * fragColor;
    if (color.a < 0.01) discard;
    outColor    = color;
    outHilights = hilight ? color : vec4(0.0);
}
` + "\x00"

// ── Post-processing ──────────────────────────────────────────────────────────

// fullscreenVertSrc draws one triangle covering the screen from gl_VertexID.
const fullscreenVertSrc = `
#version 410 core
out vec2 fragUV;
void main() {
    const vec2 pos[3] = vec2[3](
        vec2(-1.0, -1.0),
        vec2( 3.0, -1.0),
        vec2(-1.0,  3.0)
    );
    gl_Position = vec4(pos[gl_VertexID], 0.0, 1.0);
    fragUV      = pos[gl_VertexID] * 0.5 + 0.5;
}
` + "\x00"

// blurFragSrc is a single-axis 5-tap Gaussian.
// texelDir = (1/w, 0) for horizontal, (0, 1/h) for vertical.
const blurFragSrc = `
#version 410 core
in  vec2 fragUV;
out vec4 outColor;
uniform sampler2D blurTex;
uniform vec2      texelDir;
void main() {
    const float w[5] = float[](0.0625, 0.25, 0.375, 0.25, 0.0625);
    vec3 result = vec3(0.0);
    for (int i = -2; i <= 2; i++) {
        result += texture(blurTex, fragUV + float(i) * texelDir).rgb * w[i + 2];
    }
    outColor = vec4(result, 1.0);
}
` + "\x00"

const presentFragSrc = `
#version 410 core
in  vec2 fragUV;
out vec4 outColor;
uniform sampler2D colorTex; // unit 0
uniform sampler2D bloomTex; // unit 1
uniform bool      hasBloom;
void main() {
    vec3 color = texture(colorTex, fragUV).rgb;
    if (hasBloom) {
        color += texture(bloomTex, fragUV).rgb;
    }
    outColor = vec4(min(color, vec3(1.0)), 1.0);
}
` + "\x00"
