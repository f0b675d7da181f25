package render

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
)

const vertexShaderSource = `#version 410 core
layout (location = 0) in vec3 aPosition;
layout (location = 1) in vec3 aNormal;

uniform mat4 uModel;
uniform mat4 uView;
uniform mat4 uProjection;

out vec3 vNormal;

void main() {
    vNormal = transpose(inverse(mat3(uModel))) * aNormal;
    gl_Position = uProjection * uView * uModel * vec4(aPosition, 1.0);
}
`

// Ambient plus one directional light, no specular.
const fragmentShaderSource = `#version 410 core
in vec3 vNormal;

uniform vec4 uBaseColor;
uniform vec3 uLightDir;
uniform float uAmbient;
uniform float uDiffuse;

out vec4 FragColor;

void main() {
    vec3 normal = normalize(vNormal);
    if (!gl_FrontFacing) {
        normal = -normal;
    }
    float diff = max(dot(normal, normalize(uLightDir)), 0.0);
    vec3 result = min((uAmbient + diff * uDiffuse) * uBaseColor.rgb, vec3(1.0));
    FragColor = vec4(result, uBaseColor.a);
}
`

// program is the linked mesh shader with its uniform locations.
type program struct {
	id uint32

	locModel      int32
	locView       int32
	locProjection int32
	locBaseColor  int32
	locLightDir   int32
	locAmbient    int32
	locDiffuse    int32
}

func newProgram() (*program, error) {
	id, err := compileProgram(vertexShaderSource, fragmentShaderSource)
	if err != nil {
		return nil, err
	}
	return &program{
		id:            id,
		locModel:      uniform(id, "uModel"),
		locView:       uniform(id, "uView"),
		locProjection: uniform(id, "uProjection"),
		locBaseColor:  uniform(id, "uBaseColor"),
		locLightDir:   uniform(id, "uLightDir"),
		locAmbient:    uniform(id, "uAmbient"),
		locDiffuse:    uniform(id, "uDiffuse"),
	}, nil
}

func compileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	vert, err := compileShader(vertexSrc, gl.VERTEX_SHADER, "vertex")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vert)

	frag, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER, "fragment")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(frag)

	id := gl.CreateProgram()
	gl.AttachShader(id, vert)
	gl.AttachShader(id, frag)
	gl.LinkProgram(id)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetProgramInfoLog(id, logLen, nil, &log[0])
		gl.DeleteProgram(id)
		return 0, fmt.Errorf("link: %s", string(log))
	}
	return id, nil
}

func compileShader(source string, shaderType uint32, name string) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetShaderInfoLog(shader, logLen, nil, &log[0])
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s shader: %s", name, string(log))
	}
	return shader, nil
}

func uniform(id uint32, name string) int32 {
	return gl.GetUniformLocation(id, gl.Str(name+"\x00"))
}
